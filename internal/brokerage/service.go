package brokerage

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/austral-labs/austral/internal/audit"
	"github.com/austral-labs/austral/internal/platform/httpx"
	"github.com/austral-labs/austral/internal/shared"
)

// cuitPattern is the Argentine tax id format: two digits, eight digits and a
// check digit, dash separated.
var cuitPattern = regexp.MustCompile(`^\d{2}-\d{8}-\d$`)

// RepositoryPort defines data access methods for brokerage master data.
type RepositoryPort interface {
	ListClients(ctx context.Context, f ClientFilters, limit, offset int) ([]Client, bool, error)
	GetClient(ctx context.Context, id int64) (*Client, error)
	CreateClient(ctx context.Context, c *Client) (*Client, error)
	UpdateClient(ctx context.Context, id int64, name, email string) (*Client, error)
	SetClientStatus(ctx context.Context, id int64, status string) (*Client, error)

	ListAssets(ctx context.Context, f AssetFilters, limit, offset int) ([]Asset, bool, error)
	GetAsset(ctx context.Context, id int64) (*Asset, error)
	CreateAsset(ctx context.Context, a *Asset) (*Asset, error)
	UpdateAsset(ctx context.Context, id int64, name, category string) (*Asset, error)
	SetAssetActive(ctx context.Context, id int64, active bool) (*Asset, error)
}

// Meta carries per-request client context into audit rows.
type Meta struct {
	ActorID   *int64
	SourceIP  string
	UserAgent string
}

// ClientResult is a client listing page.
type ClientResult struct {
	Rows   []Client
	Paging shared.PagingInfo
}

// AssetResult is an asset listing page.
type AssetResult struct {
	Rows   []Asset
	Paging shared.PagingInfo
}

// Service handles brokerage master data business logic.
type Service struct {
	repo     RepositoryPort
	recorder *audit.Recorder
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort, recorder *audit.Recorder) *Service {
	return &Service{repo: repo, recorder: recorder}
}

// ListClients returns a page of clients.
func (s *Service) ListClients(ctx context.Context, f ClientFilters, page, pageSize int) (ClientResult, error) {
	page, pageSize = shared.ClampPage(page, pageSize)
	rows, hasNext, err := s.repo.ListClients(ctx, f, pageSize, (page-1)*pageSize)
	if err != nil {
		return ClientResult{}, err
	}
	return ClientResult{Rows: rows, Paging: shared.NewPagingInfo(page, pageSize, hasNext)}, nil
}

// GetClient fetches one client.
func (s *Service) GetClient(ctx context.Context, id int64) (*Client, error) {
	return s.repo.GetClient(ctx, id)
}

// CreateClient validates the CUIT format and registers a new active client.
func (s *Service) CreateClient(ctx context.Context, name, cuit, email string, meta Meta) (*Client, error) {
	cuit = strings.TrimSpace(cuit)
	if !cuitPattern.MatchString(cuit) {
		return nil, fmt.Errorf("brokerage: CUIT inválido %q: %w", cuit, httpx.ErrValidation)
	}
	client, err := s.repo.CreateClient(ctx, &Client{
		Name:   strings.TrimSpace(name),
		CUIT:   cuit,
		Email:  strings.ToLower(strings.TrimSpace(email)),
		Status: ClientStatusActive,
	})
	if err != nil {
		return nil, err
	}
	s.recorder.Success(ctx, audit.Options{
		ActorID:    meta.ActorID,
		Action:     "client.created",
		Resource:   "client",
		ResourceID: formatID(client.ID),
		Metadata:   map[string]any{"cuit": client.CUIT},
		SourceIP:   meta.SourceIP,
		UserAgent:  meta.UserAgent,
	})
	return client, nil
}

// UpdateClient changes mutable client fields.
func (s *Service) UpdateClient(ctx context.Context, id int64, name, email string, meta Meta) (*Client, error) {
	client, err := s.repo.UpdateClient(ctx, id, strings.TrimSpace(name), strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, err
	}
	s.recorder.Success(ctx, audit.Options{
		ActorID:    meta.ActorID,
		Action:     "client.updated",
		Resource:   "client",
		ResourceID: formatID(client.ID),
		SourceIP:   meta.SourceIP,
		UserAgent:  meta.UserAgent,
	})
	return client, nil
}

// BlockClient moves the client to BLOCKED.
func (s *Service) BlockClient(ctx context.Context, id int64, meta Meta) (*Client, error) {
	return s.setClientStatus(ctx, id, ClientStatusBlocked, "client.blocked", meta)
}

// UnblockClient moves the client back to ACTIVE.
func (s *Service) UnblockClient(ctx context.Context, id int64, meta Meta) (*Client, error) {
	return s.setClientStatus(ctx, id, ClientStatusActive, "client.unblocked", meta)
}

func (s *Service) setClientStatus(ctx context.Context, id int64, status, action string, meta Meta) (*Client, error) {
	client, err := s.repo.SetClientStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	s.recorder.Success(ctx, audit.Options{
		ActorID:    meta.ActorID,
		Action:     action,
		Resource:   "client",
		ResourceID: formatID(client.ID),
		Metadata:   map[string]any{"status": client.Status},
		SourceIP:   meta.SourceIP,
		UserAgent:  meta.UserAgent,
	})
	return client, nil
}

// ListAssets returns a page of assets.
func (s *Service) ListAssets(ctx context.Context, f AssetFilters, page, pageSize int) (AssetResult, error) {
	page, pageSize = shared.ClampPage(page, pageSize)
	rows, hasNext, err := s.repo.ListAssets(ctx, f, pageSize, (page-1)*pageSize)
	if err != nil {
		return AssetResult{}, err
	}
	return AssetResult{Rows: rows, Paging: shared.NewPagingInfo(page, pageSize, hasNext)}, nil
}

// GetAsset fetches one asset.
func (s *Service) GetAsset(ctx context.Context, id int64) (*Asset, error) {
	return s.repo.GetAsset(ctx, id)
}

// CreateAsset registers a new active asset. Codes are stored uppercase.
func (s *Service) CreateAsset(ctx context.Context, code, name, category string, meta Meta) (*Asset, error) {
	asset, err := s.repo.CreateAsset(ctx, &Asset{
		Code:     strings.ToUpper(strings.TrimSpace(code)),
		Name:     strings.TrimSpace(name),
		Category: strings.TrimSpace(category),
		IsActive: true,
	})
	if err != nil {
		return nil, err
	}
	s.recorder.Success(ctx, audit.Options{
		ActorID:    meta.ActorID,
		Action:     "asset.created",
		Resource:   "asset",
		ResourceID: formatID(asset.ID),
		Metadata:   map[string]any{"code": asset.Code},
		SourceIP:   meta.SourceIP,
		UserAgent:  meta.UserAgent,
	})
	return asset, nil
}

// UpdateAsset changes mutable asset fields.
func (s *Service) UpdateAsset(ctx context.Context, id int64, name, category string, meta Meta) (*Asset, error) {
	asset, err := s.repo.UpdateAsset(ctx, id, strings.TrimSpace(name), strings.TrimSpace(category))
	if err != nil {
		return nil, err
	}
	s.recorder.Success(ctx, audit.Options{
		ActorID:    meta.ActorID,
		Action:     "asset.updated",
		Resource:   "asset",
		ResourceID: formatID(asset.ID),
		SourceIP:   meta.SourceIP,
		UserAgent:  meta.UserAgent,
	})
	return asset, nil
}

// DeactivateAsset hides the asset from default listings.
func (s *Service) DeactivateAsset(ctx context.Context, id int64, meta Meta) (*Asset, error) {
	return s.setAssetActive(ctx, id, false, "asset.deactivated", meta)
}

// ReactivateAsset restores the asset to default listings.
func (s *Service) ReactivateAsset(ctx context.Context, id int64, meta Meta) (*Asset, error) {
	return s.setAssetActive(ctx, id, true, "asset.reactivated", meta)
}

func (s *Service) setAssetActive(ctx context.Context, id int64, active bool, action string, meta Meta) (*Asset, error) {
	asset, err := s.repo.SetAssetActive(ctx, id, active)
	if err != nil {
		return nil, err
	}
	s.recorder.Success(ctx, audit.Options{
		ActorID:    meta.ActorID,
		Action:     action,
		Resource:   "asset",
		ResourceID: formatID(asset.ID),
		Metadata:   map[string]any{"is_active": asset.IsActive},
		SourceIP:   meta.SourceIP,
		UserAgent:  meta.UserAgent,
	})
	return asset, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
