package models

import "time"

// Agreement is a stored enrollment consent, including the signature image
type Agreement struct {
	ID            int64     `json:"id" db:"id"`
	StudentID     int64     `json:"studentId" db:"student_id"`
	SignerName    string    `json:"signerName" db:"signer_name"`
	SignatureData string    `json:"-" db:"signature_data"`
	TermsVersion  string    `json:"termsVersion" db:"terms_version"`
	PDFPath       *string   `json:"pdfPath,omitempty" db:"pdf_path"`
	SignedAt      time.Time `json:"signedAt" db:"signed_at"`
	CreatedBy     int64     `json:"createdBy" db:"created_by"`
}
