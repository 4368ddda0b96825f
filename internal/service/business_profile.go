package service

import (
	"context"
	"fmt"
	"strings"

	"app/internal/model"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"google.golang.org/api/mybusinessaccountmanagement/v1"
	"google.golang.org/api/mybusinessbusinessinformation/v1"
	"google.golang.org/api/mybusinessverifications/v1"
	"google.golang.org/api/option"
)

// BusinessProfileGateway reads accounts and locations from the Google
// Business Profile APIs on behalf of a user. Every call authenticates with
// the user's OAuth access token; nothing is written.
type BusinessProfileGateway interface {
	Accounts(ctx context.Context, accessToken string) ([]model.Account, error)
	Locations(ctx context.Context, accountID, accessToken string) ([]model.Location, error)
}

type businessProfileGateway struct {
	logger zerolog.Logger
}

// NewBusinessProfileGateway creates a BusinessProfileGateway.
func NewBusinessProfileGateway(logger zerolog.Logger) BusinessProfileGateway {
	return &businessProfileGateway{
		logger: logger.With().Str("service", "BusinessProfileGateway").Logger(),
	}
}

func tokenOption(accessToken string) option.ClientOption {
	return option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))
}

func (g *businessProfileGateway) Accounts(ctx context.Context, accessToken string) ([]model.Account, error) {
	svc, err := mybusinessaccountmanagement.NewService(ctx, tokenOption(accessToken))
	if err != nil {
		return nil, fmt.Errorf("creating account management client: %w", err)
	}
	resp, err := svc.Accounts.List().Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("listing business profile accounts: %w", err)
	}

	var accounts []model.Account
	for _, a := range resp.Accounts {
		accounts = append(accounts, model.Account{
			AccountID: strings.TrimPrefix(a.Name, "accounts/"),
			Name:      a.AccountName,
			Type:      a.Type,
		})
	}
	return accounts, nil
}

func (g *businessProfileGateway) Locations(ctx context.Context, accountID, accessToken string) ([]model.Location, error) {
	infoSvc, err := mybusinessbusinessinformation.NewService(ctx, tokenOption(accessToken))
	if err != nil {
		return nil, fmt.Errorf("creating business information client: %w", err)
	}
	verifySvc, err := mybusinessverifications.NewService(ctx, tokenOption(accessToken))
	if err != nil {
		return nil, fmt.Errorf("creating verifications client: %w", err)
	}

	parent := "accounts/" + accountID
	call := infoSvc.Accounts.Locations.List(parent).
		ReadMask("name,title,websiteUri,storefrontAddress").
		PageSize(100)

	var locations []model.Location
	err = call.Pages(ctx, func(page *mybusinessbusinessinformation.ListLocationsResponse) error {
		for _, loc := range page.Locations {
			l := model.Location{
				LocationID: strings.TrimPrefix(loc.Name, "locations/"),
				AccountID:  accountID,
				Title:      loc.Title,
				WebsiteURL: loc.WebsiteUri,
				Address:    formatAddress(loc.StorefrontAddress),
			}
			l.IsVerified = g.hasVoiceOfMerchant(ctx, verifySvc, loc.Name)
			locations = append(locations, l)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing locations for account %s: %w", accountID, err)
	}
	return locations, nil
}

// hasVoiceOfMerchant checks whether the location is eligible to publish
// content. A failed check is treated as not verified rather than failing
// the whole listing.
func (g *businessProfileGateway) hasVoiceOfMerchant(ctx context.Context, svc *mybusinessverifications.Service, locationName string) bool {
	state, err := svc.Locations.GetVoiceOfMerchantState(locationName).Context(ctx).Do()
	if err != nil {
		g.logger.Warn().Err(err).Str("location", locationName).Msg("Voice of Merchant check failed, treating location as unverified")
		return false
	}
	return state.HasVoiceOfMerchant
}

func formatAddress(addr *mybusinessbusinessinformation.PostalAddress) string {
	if addr == nil {
		return ""
	}
	parts := append([]string{}, addr.AddressLines...)
	if addr.Locality != "" {
		parts = append(parts, addr.Locality)
	}
	if addr.AdministrativeArea != "" {
		parts = append(parts, addr.AdministrativeArea)
	}
	return strings.Join(parts, ", ")
}
