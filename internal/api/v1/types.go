package apiv1

import (
	"github.com/702ron/product-api-site-sub000/app/models"
	"github.com/702ron/product-api-site-sub000/internal/pkg/amazon"
	"github.com/702ron/product-api-site-sub000/internal/pkg/fnsku"
)

// Pong is the ping response
type Pong struct {
	Ping string `json:"ping"`
}

// ErrorResponse is the body of every non-2xx response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type ValidateRequest struct {
	FNSKU string `json:"fnsku" validate:"required,max=64"`
}

type ConvertRequest struct {
	FNSKU       string `json:"fnsku" validate:"required,max=64"`
	Marketplace string `json:"marketplace" validate:"omitempty,len=2,alpha"`
	UseCache    *bool  `json:"use_cache"`
	VerifyASIN  *bool  `json:"verify_asin"`
}

type ConvertResponse struct {
	Result          *fnsku.ConversionResult `json:"result"`
	CreditsCharged  int                     `json:"credits_charged"`
	CreditsRefunded int                     `json:"credits_refunded"`
}

type BulkConvertRequest struct {
	FNSKUs      []string `json:"fnskus" validate:"required,min=1,max=100,dive,required,max=64"`
	Marketplace string   `json:"marketplace" validate:"omitempty,len=2,alpha"`
}

type BulkConvertResponse struct {
	BatchID         string                    `json:"batch_id"`
	Results         []*fnsku.ConversionResult `json:"results"`
	Total           int                       `json:"total"`
	Successful      int                       `json:"successful"`
	Failed          int                       `json:"failed"`
	CreditsCharged  int                       `json:"credits_charged"`
	CreditsRefunded int                       `json:"credits_refunded"`
}

type ProductResponse struct {
	Product         *amazon.Product `json:"product"`
	CreditsCharged  int             `json:"credits_charged"`
	CreditsRefunded int             `json:"credits_refunded"`
}

type BalanceResponse struct {
	UserID  uint `json:"user_id"`
	Balance int  `json:"balance"`
}

type HistoryResponse struct {
	Transactions []models.CreditTransaction `json:"transactions"`
	Total        int64                      `json:"total"`
	Limit        int                        `json:"limit"`
	Offset       int                        `json:"offset"`
}

type AdjustCreditsRequest struct {
	UserID      uint   `json:"user_id" validate:"required"`
	Amount      int    `json:"amount" validate:"required,min=1"`
	Type        string `json:"type" validate:"omitempty,oneof=purchase refund adjustment"`
	Description string `json:"description" validate:"max=500"`
}
