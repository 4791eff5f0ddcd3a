package dto

import "github.com/yigit/lingoschool/internal/app/models"

// ContactRequest is submitted from the public contact form
type ContactRequest struct {
	Name    string `json:"name" binding:"required,max=200"`
	Email   string `json:"email" binding:"required,email"`
	Phone   string `json:"phone" binding:"max=30"`
	Message string `json:"message" binding:"required,max=5000"`
}

// TrialRequest is submitted from the public trial lesson form
type TrialRequest struct {
	Name          string `json:"name" binding:"required,max=200"`
	Email         string `json:"email" binding:"required,email"`
	Phone         string `json:"phone" binding:"max=30"`
	Language      string `json:"language" binding:"required,max=40" example:"Korean"`
	Level         string `json:"level" binding:"max=20" example:"Beginner"`
	PreferredTime string `json:"preferredTime" binding:"max=200" example:"Weekday evenings"`
}

// UpdateInquiryStatusRequest moves a contact inquiry along
type UpdateInquiryStatusRequest struct {
	Status models.InquiryStatus `json:"status" binding:"required,oneof=NEW RESPONDED CLOSED"`
}

// UpdateTrialStatusRequest moves a trial request along
type UpdateTrialStatusRequest struct {
	Status models.TrialStatus `json:"status" binding:"required,oneof=PENDING SCHEDULED DECLINED"`
}
