package dto

// SignAgreementRequest stores a signed enrollment agreement
type SignAgreementRequest struct {
	StudentID     int64  `json:"studentId" binding:"required,gt=0"`
	SignerName    string `json:"signerName" binding:"required,max=200" example:"Jisoo Kim"`
	SignatureData string `json:"signatureData" binding:"required,max=700000" example:"data:image/png;base64,iVBORw0KGgo..."`
	TermsVersion  string `json:"termsVersion" binding:"max=40" example:"2025-01"`
}
