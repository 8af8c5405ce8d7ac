package client

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
)

// AddressTypePopulationRegistration — адрес регистрации по месту жительства.
const AddressTypePopulationRegistration = "POPULATION_REGISTRATION_ADDRESS"

// Citizen — данные гражданина из реестра.
type Citizen struct {
	PersonID  string           `json:"personId"`
	GivenName string           `json:"givenname,omitempty"`
	LastName  string           `json:"lastname,omitempty"`
	Addresses []CitizenAddress `json:"addresses,omitempty"`
}

// CitizenAddress — адрес гражданина.
type CitizenAddress struct {
	AddressType  string `json:"addressType,omitempty"`
	Municipality string `json:"municipality,omitempty"`
	City         string `json:"city,omitempty"`
}

// IsResidentOf проверяет регистрацию гражданина в муниципалитете.
func (c *Citizen) IsResidentOf(municipalityID string) bool {
	for _, a := range c.Addresses {
		if strings.EqualFold(a.AddressType, AddressTypePopulationRegistration) && a.Municipality == municipalityID {
			return true
		}
	}
	return false
}

// CitizenRegistry — клиент реестра граждан.
type CitizenRegistry struct {
	rest *REST
}

// NewCitizenRegistry создаёт клиент.
func NewCitizenRegistry(cfg Config, logger *slog.Logger) *CitizenRegistry {
	return &CitizenRegistry{rest: NewREST("citizen", cfg, logger)}
}

// GetCitizen возвращает гражданина по personId.
func (c *CitizenRegistry) GetCitizen(ctx context.Context, municipalityID, personID string) (*Citizen, error) {
	var citizen Citizen
	path := fmt.Sprintf("/%s/%s", url.PathEscape(municipalityID), url.PathEscape(personID))
	if err := c.rest.Get(ctx, path, &citizen); err != nil {
		return nil, err
	}
	return &citizen, nil
}
