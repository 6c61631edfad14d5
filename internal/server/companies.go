package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/adonai404/empresas-imperial-sub001/internal/common"
	"github.com/adonai404/empresas-imperial-sub001/internal/entity"
)

type companyFiscalData struct {
	Company *entity.Company        `json:"company"`
	Records []*entity.FiscalRecord `json:"records"`
}

func (h *handlers) listCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.Companies.ListCompanies(r.Context())
	if err != nil {
		writeAppError(w, err)
		return
	}
	if companies == nil {
		companies = []*entity.Company{}
	}
	writeJSON(w, http.StatusOK, companies)
}

func (h *handlers) companyFiscalData(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "id")
	v := common.NewValidator().Field("id", raw, common.Required, common.UUID)
	if err := common.ValidateAndReturnError(v, "id deve ser um UUID"); err != nil {
		writeAppError(w, err)
		return
	}
	id := uuid.MustParse(raw)
	company, err := h.Companies.GetCompany(r.Context(), id)
	if err != nil {
		writeAppError(w, err)
		return
	}
	records := []*entity.FiscalRecord{}
	if h.Fiscal != nil {
		list, err := h.Fiscal.ListByCompany(r.Context(), id)
		if err != nil {
			writeAppError(w, err)
			return
		}
		if list != nil {
			records = list
		}
	}
	writeJSON(w, http.StatusOK, companyFiscalData{Company: company, Records: records})
}
