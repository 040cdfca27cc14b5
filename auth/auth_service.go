package auth

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/jrsteele09/acc-rfi-service/acc"
	"github.com/jrsteele09/acc-rfi-service/auth/authflowrepo"
	apperrors "github.com/jrsteele09/acc-rfi-service/internal/errors"
	"github.com/jrsteele09/acc-rfi-service/internal/utils"
	"github.com/jrsteele09/acc-rfi-service/token"
)

const (
	DefaultPendingLoginTTL = 10 * time.Minute
	DefaultExpiryMargin    = 60 * time.Second

	// LoginStatusOK is returned when a stored refresh token logged the session in.
	LoginStatusOK = "ok"
)

// LoginResult is either a completed silent login (Status == "ok") or the
// URL the user must visit to grant consent.
type LoginResult struct {
	Status  string    `json:"status,omitempty"`
	AuthURL string    `json:"authUrl,omitempty"`
	State   FlowState `json:"state"`
}

// Service drives the per-session OAuth lifecycle. It keeps no per-session
// state in memory: credentials live in the token store and pending logins
// in the auth flow repo, so any worker can serve any step.
type Service struct {
	tokens        token.Repo
	pending       authflowrepo.Repo
	authenticator Authenticator
	pendingTTL    time.Duration
	expiryMargin  time.Duration
	nowTime       func() time.Time
}

type ServiceOption func(*Service)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowFunc
	}
}

// WithPendingLoginTTL bounds how long a consent redirect may take.
func WithPendingLoginTTL(ttl time.Duration) ServiceOption {
	return func(s *Service) {
		if ttl > 0 {
			s.pendingTTL = ttl
		}
	}
}

func WithExpiryMargin(margin time.Duration) ServiceOption {
	return func(s *Service) {
		if margin >= 0 {
			s.expiryMargin = margin
		}
	}
}

func NewService(tokens token.Repo, pending authflowrepo.Repo, authenticator Authenticator, options ...ServiceOption) (*Service, error) {
	if tokens == nil {
		return nil, errors.New("[NewService] token repo is required")
	}
	if pending == nil {
		return nil, errors.New("[NewService] auth flow repo is required")
	}
	if authenticator == nil {
		return nil, errors.New("[NewService] authenticator is required")
	}

	s := &Service{
		tokens:        tokens,
		pending:       pending,
		authenticator: authenticator,
		pendingTTL:    DefaultPendingLoginTTL,
		expiryMargin:  DefaultExpiryMargin,
		nowTime:       time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Login tries a silent refresh and otherwise returns a consent URL whose
// state parameter is the session id.
func (s *Service) Login(ctx context.Context, sessionID string) (LoginResult, error) {
	if sessionID == "" {
		return LoginResult{}, ErrMissingSession
	}
	current, err := s.State(ctx, sessionID)
	if err != nil {
		return LoginResult{}, apperrors.Wrapf(err, "[Login] state")
	}

	refreshed, err := s.Refresh(ctx, sessionID)
	if err != nil {
		return LoginResult{}, apperrors.Wrapf(err, "[Login] refresh")
	}
	if refreshed {
		next, err := Transition(current, EventRefreshSucceeded)
		if err != nil {
			return LoginResult{}, err
		}
		return LoginResult{Status: LoginStatusOK, State: next}, nil
	}

	authURL, err := s.AuthURL(ctx, sessionID)
	if err != nil {
		return LoginResult{}, err
	}
	next, err := Transition(current, EventRefreshUnavailable)
	if err != nil {
		return LoginResult{}, err
	}
	return LoginResult{AuthURL: authURL, State: next}, nil
}

// AuthURL records a pending login for sessionID and returns the consent URL.
func (s *Service) AuthURL(ctx context.Context, sessionID string) (string, error) {
	if sessionID == "" {
		return "", ErrMissingSession
	}
	err := s.pending.Upsert(ctx, sessionID, &authflowrepo.AuthFlowState{
		SessionID: sessionID,
		CreatedAt: s.nowTime(),
	}, s.pendingTTL)
	if err != nil {
		return "", apperrors.Wrapf(err, "[AuthURL] failed to record pending login")
	}
	log.Debug().Str("session_id", utils.ShortID(sessionID)).Msg("Login pending consent")
	return s.authenticator.AuthCodeURL(sessionID), nil
}

// HandleCallback completes a login. state must name a pending session; the
// session it names is returned.
func (s *Service) HandleCallback(ctx context.Context, code, state string) (string, error) {
	if state == "" {
		return "", apperrors.Wrapf(apperrors.ErrStateMismatch, "[HandleCallback] missing state")
	}
	pending, err := s.pending.Get(ctx, state)
	if errors.Is(err, authflowrepo.ErrStateNotFound) {
		return "", apperrors.Wrapf(apperrors.ErrStateMismatch, "[HandleCallback] unknown state")
	}
	if err != nil {
		return "", apperrors.Wrapf(err, "[HandleCallback] failed to load pending login")
	}
	if pending.SessionID != state {
		return "", apperrors.Wrapf(apperrors.ErrStateMismatch, "[HandleCallback] state bound to another session")
	}
	if code == "" {
		return "", ErrMissingCode
	}
	current, err := s.State(ctx, pending.SessionID)
	if err != nil {
		return "", apperrors.Wrapf(err, "[HandleCallback] state")
	}
	next, err := Transition(current, EventCodeExchanged)
	if err != nil {
		return "", apperrors.Wrapf(err, "[HandleCallback]")
	}

	record, err := s.authenticator.Exchange(ctx, code)
	if err != nil {
		return "", apperrors.Wrapf(err, "[HandleCallback] code exchange failed")
	}
	if err := s.tokens.Set(ctx, pending.SessionID, *record); err != nil {
		return "", apperrors.Wrapf(err, "[HandleCallback] failed to store token")
	}
	if err := s.pending.Delete(ctx, state); err != nil {
		log.Warn().Err(err).Str("session_id", utils.ShortID(pending.SessionID)).Msg("Failed to delete pending login")
	}

	log.Info().Str("session_id", utils.ShortID(pending.SessionID)).
		Stringer("from", current).Stringer("to", next).
		Object("record", *record).Msg("Session authenticated")
	return pending.SessionID, nil
}

// Logout forgets the session's credentials and any pending login and
// returns the state the session is left in.
func (s *Service) Logout(ctx context.Context, sessionID string) (FlowState, error) {
	if sessionID == "" {
		return StateAnonymous, ErrMissingSession
	}
	current, err := s.State(ctx, sessionID)
	if err != nil {
		return current, apperrors.Wrapf(err, "[Logout] state")
	}
	next, err := Transition(current, EventLoggedOut)
	if err != nil {
		return current, err
	}
	if err := s.tokens.Clear(ctx, sessionID); err != nil {
		return current, apperrors.Wrapf(err, "[Logout] failed to clear token")
	}
	if err := s.pending.Delete(ctx, sessionID); err != nil {
		return current, apperrors.Wrapf(err, "[Logout] failed to clear pending login")
	}
	log.Info().Str("session_id", utils.ShortID(sessionID)).Stringer("from", current).Msg("Session logged out")
	return next, nil
}

// Invalidate drops credentials the platform has refused. A session that
// is not authenticated is left as it is.
func (s *Service) Invalidate(ctx context.Context, sessionID string) (FlowState, error) {
	current, err := s.State(ctx, sessionID)
	if err != nil {
		return current, apperrors.Wrapf(err, "[Invalidate] state")
	}
	next, err := Transition(current, EventRefreshFailed)
	if err != nil {
		log.Debug().Str("session_id", utils.ShortID(sessionID)).Stringer("state", current).Msg("Nothing to invalidate")
		return current, nil
	}
	if err := s.tokens.Clear(ctx, sessionID); err != nil {
		return current, apperrors.Wrapf(err, "[Invalidate] failed to clear token")
	}
	log.Info().Str("session_id", utils.ShortID(sessionID)).Stringer("to", next).Msg("Session credentials rejected")
	return next, nil
}

// Refresh renews the session's access token. It reports false, without an
// error, whenever a refresh is not possible; only a store outage is an error.
// A refresh token the provider rejects is discarded.
func (s *Service) Refresh(ctx context.Context, sessionID string) (bool, error) {
	record, err := s.tokens.Get(ctx, sessionID)
	if errors.Is(err, token.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if !record.CanRefresh() {
		return false, nil
	}

	renewed, err := s.authenticator.RefreshToken(ctx, record.RefreshToken)
	if err != nil {
		log.Warn().Err(err).Str("session_id", utils.ShortID(sessionID)).Msg("Token refresh failed")
		if acc.IsRejectedGrant(err) {
			return false, s.discardRefreshToken(ctx, sessionID, record)
		}
		return false, nil
	}

	next := renewed.Inherit(record)
	if err := s.tokens.Set(ctx, sessionID, next); err != nil {
		return false, err
	}
	log.Debug().Str("session_id", utils.ShortID(sessionID)).Object("record", next).Msg("Session refreshed")
	return true, nil
}

func (s *Service) discardRefreshToken(ctx context.Context, sessionID string, record *token.Record) error {
	if record.Expired(s.nowTime(), s.expiryMargin) {
		_, err := s.Invalidate(ctx, sessionID)
		return err
	}
	record.RefreshToken = ""
	return s.tokens.Set(ctx, sessionID, *record)
}

// IsAuthenticated reports whether the session holds a usable or renewable
// token.
func (s *Service) IsAuthenticated(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, nil
	}
	record, err := s.tokens.Get(ctx, sessionID)
	if errors.Is(err, token.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if record.AccessToken == "" {
		return false, nil
	}
	return !record.Expired(s.nowTime(), s.expiryMargin) || record.CanRefresh(), nil
}

// State derives the session's FlowState from what the stores hold.
func (s *Service) State(ctx context.Context, sessionID string) (FlowState, error) {
	authenticated, err := s.IsAuthenticated(ctx, sessionID)
	if err != nil {
		return StateAnonymous, err
	}
	if authenticated {
		return StateAuthenticated, nil
	}
	_, err = s.pending.Get(ctx, sessionID)
	switch {
	case err == nil:
		return StateAwaitingCallback, nil
	case errors.Is(err, authflowrepo.ErrStateNotFound):
		return StateAnonymous, nil
	default:
		return StateAnonymous, err
	}
}
