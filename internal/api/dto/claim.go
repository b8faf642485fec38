package dto

type ClaimRequest struct {
	ClaimType   string `json:"claim_type" validate:"required,oneof=online in_store"`
	RedirectURL string `json:"redirect_url" validate:"omitempty,url,max=2048"`
}

// Пустой identifier проверяет сервис, он отвечает INVALID_IDENTIFIER
type VerifyRequest struct {
	Identifier     string `json:"identifier" validate:"max=2048"`
	IdentifierKind string `json:"identifier_kind" validate:"omitempty,oneof=token scan"`
}

type RedeemRequest struct {
	Token string `json:"token" validate:"max=64"`
	Notes string `json:"notes" validate:"max=500"`
}
