package auth

import (
	"context"
	"fmt"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// PayloadResolver expands a minimal token payload into the full
// authorization context. Resolution is read-only against the record
// store.
type PayloadResolver interface {
	Resolve(ctx context.Context, payload *TokenPayload) (*TokenPayload, error)
}

type resolveFunc func(ctx context.Context, payload *TokenPayload) (*TokenPayload, error)

// Resolver dispatches on the payload's entity kind through a function
// table closed over at construction, so an unsupported kind is a
// lookup miss instead of a forgotten switch arm.
type Resolver struct {
	repos  RepositoryManager
	logger Logger
	table  map[EntityKind]resolveFunc
}

var _ PayloadResolver = (*Resolver)(nil)

// NewResolver builds a Resolver over the given repositories
func NewResolver(repos RepositoryManager) *Resolver {
	r := &Resolver{
		repos:  repos,
		logger: defLogger{},
	}

	r.table = map[EntityKind]resolveFunc{
		EntityAPI:    r.resolveAPI,
		EntityPerson: r.resolvePerson,
	}

	return r
}

func (r *Resolver) WithLogger(logger Logger) *Resolver {
	if logger != nil {
		r.logger = logger
	}
	return r
}

// Resolve fills the tenant and system slices of the payload
func (r *Resolver) Resolve(ctx context.Context, payload *TokenPayload) (*TokenPayload, error) {
	resolve, ok := r.table[payload.EntityType]
	if !ok {
		return nil, ErrEntityNotSupported.Clone().
			WithMetadata(map[string]any{"entity_type": string(payload.EntityType)})
	}

	return resolve(ctx, payload)
}

// resolveAPI loads the Api record and its tenant concurrently; both
// must exist.
func (r *Resolver) resolveAPI(ctx context.Context, payload *TokenPayload) (*TokenPayload, error) {
	var (
		api        *Api
		partyGroup *PartyGroup
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		record, err := r.repos.Apis().GetByID(gctx, payload.EntityID)
		if err != nil {
			if IsNotFound(err) {
				return goerrors.New(fmt.Sprintf("api %s not found", payload.User), goerrors.CategoryNotFound).
					WithCode(goerrors.CodeNotFound)
			}
			return err
		}
		api = record
		return nil
	})

	g.Go(func() error {
		record, err := r.repos.PartyGroups().GetByCode(gctx, payload.Customer)
		if err != nil {
			if IsNotFound(err) {
				return goerrors.New(fmt.Sprintf("party group %s not found", payload.Customer), goerrors.CategoryNotFound).
					WithCode(goerrors.CodeNotFound)
			}
			return err
		}
		partyGroup = record
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	r.logger.Debug("resolved api context", "api", api.Name, "customer", partyGroup.Code)

	payload.PartyGroups = []PartyGroupRef{{
		Code:    partyGroup.Code,
		Name:    partyGroup.Name,
		Systems: partyGroup.Systems,
	}}
	payload.SelectedPartyGroup = &payload.PartyGroups[0]

	return payload, nil
}

// resolvePerson unions the person's own membership rows with any alias
// rows, joins them to their tenants, and derives the per-system and
// third-party views.
func (r *Resolver) resolvePerson(ctx context.Context, payload *TokenPayload) (*TokenPayload, error) {
	memberships, err := r.repos.PersonSystems().ListForEntity(ctx, PersonSystemPerson, payload.EntityID)
	if err != nil {
		return nil, err
	}

	if payload.AliasID != nil {
		aliasRows, err := r.repos.PersonSystems().ListForEntity(ctx, PersonSystemAlias, *payload.AliasID)
		if err != nil {
			return nil, err
		}
		memberships = append(memberships, aliasRows...)
	}

	systemIDs := make([]uuid.UUID, 0, len(memberships))
	for _, m := range memberships {
		systemIDs = append(systemIDs, m.SystemID)
	}

	links, err := r.repos.PartyGroupSystems().ListByIDs(ctx, systemIDs)
	if err != nil {
		return nil, err
	}

	linkByID := make(map[uuid.UUID]*PartyGroupSystem, len(links))
	seen := make(map[string]bool, len(links))
	codes := make([]string, 0, len(links))
	for _, l := range links {
		linkByID[l.ID] = l
		if !seen[l.PartyGroupCode] {
			seen[l.PartyGroupCode] = true
			codes = append(codes, l.PartyGroupCode)
		}
	}

	groups, err := r.repos.PartyGroups().ListByCodes(ctx, codes)
	if err != nil {
		return nil, err
	}

	payload.PartyGroups = make([]PartyGroupRef, 0, len(groups))
	payload.SelectedPartyGroup = nil
	for _, pg := range groups {
		payload.PartyGroups = append(payload.PartyGroups, PartyGroupRef{
			Code:    pg.Code,
			Name:    pg.Name,
			Systems: pg.Systems,
		})
	}
	for i := range payload.PartyGroups {
		if payload.PartyGroups[i].Code == payload.Customer {
			payload.SelectedPartyGroup = &payload.PartyGroups[i]
			break
		}
	}

	payload.Systems = payload.Systems[:0]
	payload.ThirdPartyCode = make(map[string]string)
	for _, m := range memberships {
		link, ok := linkByID[m.SystemID]
		if !ok {
			continue
		}

		if link.PartyGroupCode == payload.Customer {
			payload.Systems = append(payload.Systems, SystemMembership{
				ID:       m.ID,
				Type:     m.Type,
				Code:     m.Code,
				Customer: link.PartyGroupCode,
				System:   link.System,
			})
		}

		if m.Code != "" {
			payload.ThirdPartyCode[link.System] = m.Code
		}
	}

	return payload, nil
}
