package entity

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ExtractedFiscalData is the structured record returned by the extraction
// endpoint for one document. Monetary fields are null when absent.
type ExtractedFiscalData struct {
	Empresa          string              `json:"empresa"`
	CNPJ             string              `json:"cnpj"`
	Periodo          string              `json:"periodo"` // MM/YYYY
	Entradas         decimal.NullDecimal `json:"entradas"`
	Saidas           decimal.NullDecimal `json:"saidas"`
	Servicos         decimal.NullDecimal `json:"servicos"`
	ICMS             decimal.NullDecimal `json:"icms"`
	PIS              decimal.NullDecimal `json:"pis"`
	COFINS           decimal.NullDecimal `json:"cofins"`
	RegimeTributario *string             `json:"regime_tributario,omitempty"`
}

// Company is a row of the companies table.
type Company struct {
	ID   uuid.UUID `json:"id"`
	CNPJ string    `json:"cnpj"`
	Name string    `json:"name"`
}

// FiscalRecord is a row of the fiscal_data table, unique per (company, period).
type FiscalRecord struct {
	ID        uuid.UUID       `json:"id"`
	CompanyID uuid.UUID       `json:"company_id"`
	Period    string          `json:"period"`
	RBT12     decimal.Decimal `json:"rbt12"`
	Entrada   decimal.Decimal `json:"entrada"`
	Saida     decimal.Decimal `json:"saida"`
	Imposto   decimal.Decimal `json:"imposto"`
	Servicos  decimal.Decimal `json:"servicos"`
}

// FiscalAmounts is the monetary subset written by an import.
type FiscalAmounts struct {
	Entrada  decimal.Decimal
	Saida    decimal.Decimal
	Imposto  decimal.Decimal
	Servicos decimal.Decimal
}

// AmountsFrom maps extracted fields onto stored columns; nulls become zero.
func AmountsFrom(d ExtractedFiscalData) FiscalAmounts {
	return FiscalAmounts{
		Entrada:  orZero(d.Entradas),
		Saida:    orZero(d.Saidas),
		Servicos: orZero(d.Servicos),
		Imposto:  orZero(d.ICMS),
	}
}

func orZero(v decimal.NullDecimal) decimal.Decimal {
	if !v.Valid {
		return decimal.Zero
	}
	return v.Decimal
}
