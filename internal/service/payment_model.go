package service

import (
	"fmt"

	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/config"
	"github.com/Ebonybrucetravel/Ebonybrucetravel-sub003/internal/vault"
)

// PaymentModel decides who pays the travel provider and what the customer is
// charged. It is fixed per deployment, resolved once at startup.
type PaymentModel string

const (
	// ModelMerchant charges the customer the full total; the configured
	// agency card pays the provider.
	ModelMerchant PaymentModel = "merchant"

	// ModelAgency pays the provider with the guest's own card; the customer
	// is charged only the margin.
	ModelAgency PaymentModel = "agency"
)

// ResolvePaymentModel validates and returns the configured model.
func ResolvePaymentModel(cfg config.PaymentConfig) (PaymentModel, error) {
	switch PaymentModel(cfg.Model) {
	case ModelMerchant:
		if cfg.AgencyCardNumber == "" {
			return "", fmt.Errorf("merchant payment model requires an agency card")
		}
		return ModelMerchant, nil
	case ModelAgency:
		return ModelAgency, nil
	default:
		return "", fmt.Errorf("unknown payment model %q", cfg.Model)
	}
}

// AgencyCard builds the card used to pay providers under the merchant model.
func AgencyCard(cfg config.PaymentConfig) *vault.Card {
	if cfg.AgencyCardNumber == "" {
		return nil
	}
	return &vault.Card{
		Number:   cfg.AgencyCardNumber,
		ExpMonth: cfg.AgencyCardExpMo,
		ExpYear:  cfg.AgencyCardExpYr,
		CVC:      cfg.AgencyCardCVC,
		Holder:   cfg.AgencyCardHolder,
	}
}
