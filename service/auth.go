package service

import (
	"context"
	"time"

	"gitlab.com/kuberbook/settlement_api/model"
	"gitlab.com/kuberbook/settlement_api/service/auth_service"
)

// VerifyCredentials returns the party owning the username when the password matches.
// Unknown usernames and wrong passwords fail the same way.
func (service *Service) VerifyCredentials(ctx context.Context, username, password string) (*model.Party, error) {
	party, err := service.repo.GetPartyByUsername(ctx, username)
	if err != nil {
		if model.ErrorKindOf(err) == model.ErrKindNotFound {
			return nil, model.NewNotFoundError("invalid username or password")
		}
		return nil, err
	}
	if !party.ValidatePass(password) {
		return nil, model.NewNotFoundError("invalid username or password")
	}
	if party.IsBlocked {
		return nil, model.NewValidationError("account is blocked", "username")
	}
	return party, nil
}

// VerifyAdminCredentials is VerifyCredentials for root admins
func (service *Service) VerifyAdminCredentials(ctx context.Context, username, password string) (*model.Admin, error) {
	admin, err := service.repo.GetAdminByUsername(ctx, username)
	if err != nil {
		if model.ErrorKindOf(err) == model.ErrKindNotFound {
			return nil, model.NewNotFoundError("invalid username or password")
		}
		return nil, err
	}
	if !admin.ValidatePass(password) {
		return nil, model.NewNotFoundError("invalid username or password")
	}
	return admin, nil
}

// IssueTokens signs an access and a refresh token for the principal
func (service *Service) IssueTokens(kind auth_service.PrincipalKind, id uint64) (*model.TokenPair, error) {
	api := service.cfg.Server.API
	access, err := auth_service.CreatePrincipalToken(kind, id, auth_service.TokenUseAccess, api.JWTTokenSecret, api.AccessTokenHours)
	if err != nil {
		return nil, model.NewInternalError(err, "unable to issue access token")
	}
	refresh, err := auth_service.CreatePrincipalToken(kind, id, auth_service.TokenUseRefresh, api.JWTRefreshSecret, api.RefreshTokenHours)
	if err != nil {
		return nil, model.NewInternalError(err, "unable to issue refresh token")
	}
	return &model.TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		ExpiresIn:    int64((time.Duration(api.AccessTokenHours) * time.Hour).Seconds()),
	}, nil
}

// Login verifies the credentials and issues tokens in one step
func (service *Service) Login(ctx context.Context, credentials model.Credentials) (*model.TokenPair, error) {
	if credentials.Admin {
		admin, err := service.VerifyAdminCredentials(ctx, credentials.Username, credentials.Password)
		if err != nil {
			return nil, err
		}
		return service.IssueTokens(auth_service.PrincipalAdmin, admin.ID)
	}
	party, err := service.VerifyCredentials(ctx, credentials.Username, credentials.Password)
	if err != nil {
		return nil, err
	}
	return service.IssueTokens(auth_service.PrincipalParty, party.ID)
}

// Refresh exchanges a valid refresh token for a new pair
func (service *Service) Refresh(ctx context.Context, refreshToken string) (*model.TokenPair, error) {
	kind, id, err := auth_service.ParsePrincipal(refreshToken, service.cfg.Server.API.JWTRefreshSecret, auth_service.TokenUseRefresh)
	if err != nil {
		return nil, model.NewValidationError("invalid refresh token", "refresh_token")
	}
	if kind == auth_service.PrincipalParty {
		party, err := service.repo.GetParty(ctx, id)
		if err != nil {
			return nil, err
		}
		if party.IsBlocked {
			return nil, model.NewValidationError("account is blocked", "refresh_token")
		}
	}
	return service.IssueTokens(kind, id)
}
