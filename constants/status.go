package constants

// FileStatus is the per-file state of a batch import.
type FileStatus string

const (
	FileStatusPending    FileStatus = "pending"
	FileStatusParsing    FileStatus = "parsing"
	FileStatusExtracting FileStatus = "extracting"
	FileStatusSaving     FileStatus = "saving"
	FileStatusSuccess    FileStatus = "success"
	FileStatusError      FileStatus = "error"
)

// Terminal reports whether no further automatic transition follows s.
func (s FileStatus) Terminal() bool {
	return s == FileStatusSuccess || s == FileStatusError
}

// Progress checkpoints reported by the per-file state machine.
const (
	ProgressParsing    = 0
	ProgressExtracting = 25
	ProgressSaving     = 50
	ProgressCompany    = 75
	ProgressDone       = 100
)

// User-facing messages (pt-BR).
const (
	MsgImported         = "Importado com sucesso"
	MsgUnknownError     = "Erro desconhecido"
	MsgNoFileSelected   = "Nenhum arquivo selecionado"
	MsgEmptyPDFText     = "Não foi possível extrair texto do PDF"
	MsgBatchInProgress  = "Já existe uma importação em andamento"
	MsgRateLimited      = "Limite de requisições excedido. Tente novamente em alguns instantes."
	MsgQuotaExhausted   = "Créditos de IA esgotados. Adicione créditos para continuar."
	MsgInvalidPDF       = "Arquivo PDF inválido ou corrompido"
	MsgInvalidCNPJ      = "CNPJ inválido retornado pela extração"
	MsgMissingPeriod    = "Período não identificado no documento"
	MsgInvalidPeriod    = "Período inválido retornado pela extração (esperado MM/AAAA)"
	MsgExtractionFailed = "Falha ao extrair dados do documento"
	MsgFileUnreadable   = "Não foi possível ler o arquivo"
	MsgCanceled         = "Importação cancelada"
	MsgNotPDF           = "Apenas arquivos PDF são aceitos"
	MsgInternal         = "Erro interno do servidor"
)
