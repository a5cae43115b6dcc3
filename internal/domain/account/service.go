package account

import (
	"context"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/xenking/orderdesk/internal/domain/auth"
	"github.com/xenking/orderdesk/internal/domain/failure"
)

// PasswordHasher turns a plain password into a stored hash.
type PasswordHasher interface {
	Hash(password string) (string, error)
}

// BcryptHasher hashes passwords with bcrypt at the given cost.
type BcryptHasher struct {
	Cost int
}

// Hash implements PasswordHasher.
func (h BcryptHasher) Hash(password string) (string, error) {
	cost := h.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	b, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", errors.Wrap(err, "hash password")
	}
	return string(b), nil
}

// Registration is the result of registering a business.
type Registration struct {
	Business *Business
	Manager  *Manager
}

// Service handles business registration and agent management.
type Service struct {
	accounts Repository
	hasher   PasswordHasher
	now      func() time.Time
}

// NewService creates an account Service.
func NewService(accounts Repository, hasher PasswordHasher) *Service {
	return &Service{accounts: accounts, hasher: hasher, now: time.Now}
}

// Register validates both halves of the request and stores the business with
// its manager.
func (s *Service) Register(ctx context.Context, b CreateBusinessRequest, m CreateManagerRequest) (*Registration, error) {
	now := s.now()
	if err := ValidateBusiness(b, now); err != nil {
		return nil, err
	}
	if err := ValidateManager(m); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(m.Password)
	if err != nil {
		return nil, err
	}

	business := &Business{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(b.Name),
		Email:     b.Email,
		Phone:     b.Phone,
		TaxID:     b.TaxID,
		FoundedOn: b.FoundedOn,
		CreatedAt: now,
	}
	manager := &Manager{
		ID:           uuid.New().String(),
		BusinessID:   business.ID,
		FirstName:    strings.TrimSpace(m.FirstName),
		LastName:     strings.TrimSpace(m.LastName),
		Email:        m.Email,
		Phone:        m.Phone,
		PasswordHash: hash,
		CreatedAt:    now,
	}
	if err := s.accounts.CreateBusiness(ctx, business, manager); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, failure.New(failure.ReasonEmailTaken, m.Email)
		}
		return nil, errors.Wrap(err, "create business")
	}
	return &Registration{Business: business, Manager: manager}, nil
}

// AddAgent creates an agent under the calling manager. Agents cannot add
// other agents.
func (s *Service) AddAgent(ctx context.Context, who auth.Identity, req CreateAgentRequest) (*Agent, error) {
	if who.IsAgent() {
		return nil, failure.New(failure.ReasonForbidden, who.AgentID, "add agent")
	}
	if err := ValidateAgent(req); err != nil {
		return nil, err
	}

	a := &Agent{
		ID:        uuid.New().String(),
		ManagerID: who.ManagerID,
		Name:      strings.TrimSpace(req.Name),
		Email:     req.Email,
		Phone:     req.Phone,
		CreatedAt: s.now(),
	}
	if err := s.accounts.CreateAgent(ctx, a); err != nil {
		if errors.Is(err, ErrEmailTaken) {
			return nil, failure.New(failure.ReasonEmailTaken, req.Email)
		}
		return nil, errors.Wrap(err, "create agent")
	}
	return a, nil
}
