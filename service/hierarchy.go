package service

import (
	"context"
	"strings"

	"github.com/lib/pq"
	"github.com/nyaruka/phonenumbers"
	"github.com/rs/zerolog/log"
	"gitlab.com/kuberbook/settlement_api/model"
)

// CreateParty registers a party under an admin or another party
func (service *Service) CreateParty(ctx context.Context, parent model.ParentRef, role model.PartyRole, profile model.PartyProfile) (*model.Party, error) {
	logger := log.With().Str("section", "hierarchy").Str("method", "CreateParty").Logger()

	profile.Name = strings.TrimSpace(profile.Name)
	profile.Username = strings.TrimSpace(profile.Username)
	missing := []string{}
	if profile.Name == "" {
		missing = append(missing, "name")
	}
	if profile.Username == "" {
		missing = append(missing, "username")
	}
	if strings.TrimSpace(profile.Mobile) == "" {
		missing = append(missing, "mobile")
	}
	if profile.Password == "" {
		missing = append(missing, "password")
	}
	if role == "" {
		missing = append(missing, "role")
	}
	if len(missing) > 0 {
		return nil, model.NewValidationError("missing required fields", missing...)
	}
	if !role.IsValid() {
		return nil, model.NewValidationError("unknown role", "role")
	}
	if !parent.IsValid() {
		return nil, model.NewValidationError("invalid parent reference", "joined_by")
	}
	mobile, err := service.normaliseMobile(profile.Mobile)
	if err != nil {
		return nil, err
	}
	profile.Mobile = mobile

	if err := service.checkUnique(ctx, profile.Username, profile.Mobile, 0); err != nil {
		return nil, err
	}
	uplines, err := service.resolveParent(ctx, parent)
	if err != nil {
		return nil, err
	}
	srNo, err := service.repo.NextSrNo(ctx)
	if err != nil {
		return nil, err
	}

	party := model.NewParty(srNo, role, parent, uplines, profile)
	if err := party.EncodePass(); err != nil {
		return nil, model.NewInternalError(err, "unable to encode password")
	}
	if err := service.repo.CreateParty(ctx, party); err != nil {
		logger.Error().Err(err).Str("username", party.Username).Msg("Unable to create party")
		return nil, err
	}
	logger.Info().Uint64("party_id", party.ID).Uint64("sr_no", party.SrNo).Str("parent", parent.Type.String()).Msg("Party created")
	return party, nil
}

// UpdateParty applies a profile patch and optionally moves the party under a new parent
func (service *Service) UpdateParty(ctx context.Context, id uint64, patch model.PartyPatch) (*model.PartyWithParent, error) {
	logger := log.With().Str("section", "hierarchy").Str("method", "UpdateParty").Uint64("party_id", id).Logger()

	party, err := service.repo.GetParty(ctx, id)
	if err != nil {
		return nil, err
	}

	fields := map[string]interface{}{}
	username, mobile := party.Username, party.Mobile
	if patch.Name != nil {
		name := strings.TrimSpace(*patch.Name)
		if name == "" {
			return nil, model.NewValidationError("name can not be empty", "name")
		}
		fields["name"] = name
	}
	if patch.Username != nil {
		username = strings.TrimSpace(*patch.Username)
		if username == "" {
			return nil, model.NewValidationError("username can not be empty", "username")
		}
		fields["username"] = username
	}
	if patch.Mobile != nil {
		if mobile, err = service.normaliseMobile(*patch.Mobile); err != nil {
			return nil, err
		}
		fields["mobile"] = mobile
	}
	if patch.Password != nil {
		if *patch.Password == "" {
			return nil, model.NewValidationError("password can not be empty", "password")
		}
		hashed := model.Party{Password: *patch.Password}
		if err := hashed.EncodePass(); err != nil {
			return nil, model.NewInternalError(err, "unable to encode password")
		}
		fields["password"] = hashed.Password
	}
	if patch.Username != nil || patch.Mobile != nil {
		if err := service.checkUnique(ctx, username, mobile, id); err != nil {
			return nil, err
		}
	}

	var move *model.PartyMove
	if patch.JoinedBy != nil && *patch.JoinedBy != party.Parent() {
		uplines, err := service.planMove(ctx, party, *patch.JoinedBy)
		if err != nil {
			return nil, err
		}
		move = &model.PartyMove{Parent: *patch.JoinedBy, Uplines: uplines}
	}

	if len(fields) > 0 || move != nil {
		if err := service.repo.UpdateParty(ctx, id, fields, move); err != nil {
			logger.Error().Err(err).Msg("Unable to update party")
			return nil, err
		}
	}
	if move != nil {
		logger.Info().Str("parent_type", move.Parent.Type.String()).Uint64("parent_id", move.Parent.ID).Int("rewritten", len(move.Uplines)).Msg("Party moved")
	}
	return service.repo.GetPartyWithParent(ctx, id)
}

// planMove computes the new uplines of party and of every descendant when it joins under parent
func (service *Service) planMove(ctx context.Context, party *model.Party, parent model.ParentRef) (map[uint64]pq.Int64Array, error) {
	if !parent.IsValid() {
		return nil, model.NewValidationError("invalid parent reference", "joined_by")
	}
	if parent.IsParty() && parent.ID == party.ID {
		return nil, model.NewValidationError("a party can not join under itself", "joined_by")
	}
	if parent.IsParty() {
		target, err := service.repo.GetParty(ctx, parent.ID)
		if err != nil {
			return nil, err
		}
		if target.HasUpline(party.ID) {
			return nil, model.NewValidationError("a party can not join under its own descendant", "joined_by")
		}
	}
	chain, err := service.resolveParent(ctx, parent)
	if err != nil {
		return nil, err
	}

	descendants, err := service.descendants(ctx, party.ID)
	if err != nil {
		return nil, err
	}
	prefix := append(append(pq.Int64Array{}, chain...), int64(party.ID))
	plan := map[uint64]pq.Int64Array{party.ID: chain}
	for _, d := range descendants {
		plan[d.ID] = rebaseUplines(d.Uplines, party.ID, prefix)
	}
	return plan, nil
}

// rebaseUplines replaces everything up to and including movedID with prefix
func rebaseUplines(uplines pq.Int64Array, movedID uint64, prefix pq.Int64Array) pq.Int64Array {
	for i := 1; i < len(uplines); i++ {
		if uint64(uplines[i]) == movedID {
			return append(append(pq.Int64Array{}, prefix...), uplines[i+1:]...)
		}
	}
	return append(pq.Int64Array{}, prefix...)
}

// DeleteParty removes the party for good
func (service *Service) DeleteParty(ctx context.Context, id uint64) error {
	if err := service.repo.DeleteParty(ctx, id); err != nil {
		return err
	}
	log.Warn().Str("section", "hierarchy").Str("method", "DeleteParty").Uint64("party_id", id).Msg("Party deleted")
	return nil
}

// GetPartyByID returns the party with the display name of its parent
func (service *Service) GetPartyByID(ctx context.Context, id uint64) (*model.PartyWithParent, error) {
	return service.repo.GetPartyWithParent(ctx, id)
}

// CascadeStatus sets field on the party and on every transitive descendant
func (service *Service) CascadeStatus(ctx context.Context, id uint64, field model.StatusField, value bool) (int64, error) {
	if !field.IsValid() {
		return 0, model.NewValidationError("unknown status field", "field")
	}
	if _, err := service.repo.GetParty(ctx, id); err != nil {
		return 0, err
	}
	descendants, err := service.descendants(ctx, id)
	if err != nil {
		return 0, err
	}
	ids := make([]uint64, 0, len(descendants)+1)
	ids = append(ids, id)
	for _, d := range descendants {
		ids = append(ids, d.ID)
	}
	affected, err := service.repo.SetStatus(ctx, ids, field, value)
	if err != nil {
		return 0, err
	}
	log.Info().
		Str("section", "hierarchy").
		Str("method", "CascadeStatus").
		Uint64("party_id", id).
		Str("field", string(field)).
		Bool("value", value).
		Int64("affected", affected).
		Msg("Status cascaded")
	return affected, nil
}

// descendants walks joined_by edges breadth first
func (service *Service) descendants(ctx context.Context, id uint64) ([]model.Party, error) {
	visited := map[uint64]bool{id: true}
	frontier := []uint64{id}
	found := []model.Party{}
	for len(frontier) > 0 {
		children, err := service.repo.ListChildren(ctx, frontier)
		if err != nil {
			return nil, err
		}
		frontier = frontier[:0]
		for _, child := range children {
			if visited[child.ID] {
				continue
			}
			visited[child.ID] = true
			found = append(found, child)
			frontier = append(frontier, child.ID)
		}
	}
	return found, nil
}

// ListParties returns a page of parties ordered by sr_no
func (service *Service) ListParties(ctx context.Context, filter model.PartyFilter, page, limit int) (*model.PartyList, error) {
	page, limit = pageAndLimit(page, limit)
	parties, count, err := service.repo.ListParties(ctx, filter, page, limit)
	if err != nil {
		return nil, err
	}
	meta := model.PagingMeta{
		Page:   page,
		Count:  count,
		Limit:  limit,
		Order:  "sr_no",
		Filter: map[string]interface{}{},
	}
	if filter.Search != "" {
		meta.Filter["search"] = filter.Search
	}
	if filter.Parent != nil {
		meta.Filter["parent"] = *filter.Parent
	}
	if filter.Role != "" {
		meta.Filter["role"] = filter.Role
	}
	return &model.PartyList{Parties: parties, Meta: meta}, nil
}

// resolveParent returns the uplines of a party joining under parent
func (service *Service) resolveParent(ctx context.Context, parent model.ParentRef) (pq.Int64Array, error) {
	switch parent.Type {
	case model.JoinedByAdmin:
		admin, err := service.repo.GetAdmin(ctx, parent.ID)
		if err != nil {
			return nil, err
		}
		return pq.Int64Array{int64(admin.ID)}, nil
	case model.JoinedByParty:
		p, err := service.repo.GetParty(ctx, parent.ID)
		if err != nil {
			return nil, err
		}
		return p.ChildUplines(), nil
	}
	return nil, model.NewValidationError("invalid parent reference", "joined_by")
}

func (service *Service) checkUnique(ctx context.Context, username, mobile string, excludeID uint64) error {
	dup, err := service.repo.FindDuplicateParty(ctx, username, mobile, excludeID)
	if err != nil {
		return err
	}
	if dup == nil {
		return nil
	}
	conflict := model.NewConflictError("username or mobile already in use")
	if dup.Username == username {
		conflict.Fields = append(conflict.Fields, "username")
	}
	if dup.Mobile == mobile {
		conflict.Fields = append(conflict.Fields, "mobile")
	}
	return conflict
}

// normaliseMobile formats the number as E.164 so the unique column compares like with like
func (service *Service) normaliseMobile(mobile string) (string, error) {
	num, err := phonenumbers.Parse(strings.TrimSpace(mobile), service.cfg.Hierarchy.DefaultRegion)
	if err != nil || !phonenumbers.IsPossibleNumber(num) {
		return "", model.NewValidationError("invalid mobile number", "mobile")
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
