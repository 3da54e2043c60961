package actions

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gitlab.com/kuberbook/settlement_api/model"
	"gitlab.com/kuberbook/settlement_api/service/auth_service"
)

// createPartyRequest leaves required checks to the service so every missing field is reported
type createPartyRequest struct {
	Name     string           `json:"name"`
	Username string           `json:"username"`
	Mobile   string           `json:"mobile"`
	Password string           `json:"password"`
	Role     model.PartyRole  `json:"role"`
	JoinedBy *model.ParentRef `json:"joined_by"`
}

func (r createPartyRequest) profile() model.PartyProfile {
	return model.PartyProfile{
		Name:     r.Name,
		Username: r.Username,
		Mobile:   r.Mobile,
		Password: r.Password,
	}
}

type statusRequest struct {
	Field model.StatusField `json:"field" binding:"required"`
	Value *bool             `json:"value" binding:"required"`
}

type depositRequest struct {
	Amount model.Amount `json:"amount"`
}

// CreateParty godoc
// swagger:route POST /api/v1/parties parties create_party
// Admins may attach the party anywhere, a party principal only inside its own downline
func (actions *Actions) CreateParty(c *gin.Context) {
	in := createPartyRequest{}
	if err := c.ShouldBindJSON(&in); err != nil {
		abortWithError(c, BadRequest, "Invalid request body")
		return
	}
	kind, principalID, _ := getPrincipal(c)
	if in.JoinedBy == nil {
		parent := model.AdminRef(principalID)
		if kind == auth_service.PrincipalParty {
			parent = model.PartyRef(principalID)
		}
		in.JoinedBy = &parent
	}
	if kind == auth_service.PrincipalParty && !actions.inDownline(c, *in.JoinedBy, principalID) {
		return
	}

	party, err := actions.service.CreateParty(c.Request.Context(), *in.JoinedBy, in.Role, in.profile())
	if err != nil {
		abortWithModelError(c, err)
		return
	}
	c.JSON(Created, party)
}

// inDownline aborts unless parent is the principal itself or one of its descendants
func (actions *Actions) inDownline(c *gin.Context, parent model.ParentRef, principalID uint64) bool {
	if parent.IsParty() && parent.ID == principalID {
		return true
	}
	if parent.IsParty() {
		target, err := actions.service.GetPartyByID(c.Request.Context(), parent.ID)
		if err == nil && target.HasUpline(principalID) {
			return true
		}
	}
	abortWithError(c, AccessDenied, "Access Denied")
	return false
}

// canView reports whether the principal may read party
func canView(c *gin.Context, party *model.Party) bool {
	kind, principalID, _ := getPrincipal(c)
	if kind == auth_service.PrincipalAdmin {
		return true
	}
	return party.ID == principalID || party.HasUpline(principalID)
}

// ListParties godoc
// swagger:route GET /api/v1/parties parties list_parties
// Query: search, role, parent_type, parent_id, page, limit. Parties only see their direct downline.
func (actions *Actions) ListParties(c *gin.Context) {
	page, limit := getPagination(c)
	filter := model.PartyFilter{
		Search: c.Query("search"),
		Role:   model.PartyRole(c.Query("role")),
	}
	if parentType := c.Query("parent_type"); parentType != "" {
		parentID, err := strconv.ParseUint(c.Query("parent_id"), 10, 64)
		if err != nil {
			abortWithError(c, BadRequest, "Invalid parent_id")
			return
		}
		filter.Parent = &model.ParentRef{Type: model.JoinedByType(parentType), ID: parentID}
	}
	if kind, principalID, _ := getPrincipal(c); kind == auth_service.PrincipalParty {
		parent := model.PartyRef(principalID)
		filter.Parent = &parent
	}

	list, err := actions.service.ListParties(c.Request.Context(), filter, page, limit)
	if err != nil {
		abortWithModelError(c, err)
		return
	}
	c.JSON(OK, list)
}

// GetParty godoc
// swagger:route GET /api/v1/parties/{id} parties get_party
func (actions *Actions) GetParty(c *gin.Context) {
	id, ok := getUintParam(c, "id")
	if !ok {
		return
	}
	party, err := actions.service.GetPartyByID(c.Request.Context(), id)
	if err != nil {
		abortWithModelError(c, err)
		return
	}
	if !canView(c, &party.Party) {
		abortWithError(c, NotFound, "party not found")
		return
	}
	c.JSON(OK, party)
}

// UpdateParty godoc
// swagger:route PATCH /api/v1/parties/{id} parties update_party
func (actions *Actions) UpdateParty(c *gin.Context) {
	id, ok := getUintParam(c, "id")
	if !ok {
		return
	}
	patch := model.PartyPatch{}
	if err := c.ShouldBindJSON(&patch); err != nil {
		abortWithError(c, BadRequest, "Invalid request body")
		return
	}
	party, err := actions.service.UpdateParty(c.Request.Context(), id, patch)
	if err != nil {
		abortWithModelError(c, err)
		return
	}
	c.JSON(OK, party)
}

// DeleteParty godoc
// swagger:route DELETE /api/v1/parties/{id} parties delete_party
func (actions *Actions) DeleteParty(c *gin.Context) {
	id, ok := getUintParam(c, "id")
	if !ok {
		return
	}
	if err := actions.service.DeleteParty(c.Request.Context(), id); err != nil {
		abortWithModelError(c, err)
		return
	}
	c.JSON(OK, map[string]interface{}{"id": id, "deleted": true})
}

// SetPartyStatus godoc
// swagger:route PUT /api/v1/parties/{id}/status parties set_status
// Applies is_blocked or is_bet_lock to the party and its whole downline
func (actions *Actions) SetPartyStatus(c *gin.Context) {
	id, ok := getUintParam(c, "id")
	if !ok {
		return
	}
	in := statusRequest{}
	if err := c.ShouldBindJSON(&in); err != nil {
		abortWithError(c, BadRequest, "Field and value are required")
		return
	}
	affected, err := actions.service.CascadeStatus(c.Request.Context(), id, in.Field, *in.Value)
	if err != nil {
		abortWithModelError(c, err)
		return
	}
	c.JSON(OK, map[string]interface{}{
		"id":       id,
		"field":    in.Field,
		"value":    *in.Value,
		"affected": affected,
	})
}

// Deposit godoc
// swagger:route POST /api/v1/parties/{id}/deposit parties deposit
func (actions *Actions) Deposit(c *gin.Context) {
	id, ok := getUintParam(c, "id")
	if !ok {
		return
	}
	in := depositRequest{}
	if err := c.ShouldBindJSON(&in); err != nil {
		abortWithError(c, BadRequest, "Invalid amount")
		return
	}
	_, operatorID, _ := getPrincipal(c)
	balance, err := actions.service.Deposit(c.Request.Context(), id, in.Amount.Big(), operatorID)
	if err != nil {
		abortWithModelError(c, err)
		return
	}
	c.JSON(OK, map[string]interface{}{
		"id":            id,
		"wallet_amount": model.NewAmount(balance),
	})
}
