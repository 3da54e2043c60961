package model

/*
 * Copyright © 2018-2019 Around25 SRL <office@around25.com>
 *
 * Licensed under the Around25 Wallet License Agreement (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.around25.com/licenses/EXCHANGE_LICENSE
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 *
 * @author		Cosmin Harangus <cosmin@around25.com>
 * @copyright 2018-2019 Around25 SRL <office@around25.com>
 * @license 	EXCHANGE_LICENSE
 */

import (
	"time"

	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"
)

// PartyRole is the tier a party holds in the reseller hierarchy
type PartyRole string

const (
	PartyRoleSuper  PartyRole = "super"
	PartyRoleMaster PartyRole = "master"
	PartyRoleClient PartyRole = "client"
)

func (r PartyRole) String() string {
	return string(r)
}

func (r PartyRole) IsValid() bool {
	switch r {
	case PartyRoleSuper, PartyRoleMaster, PartyRoleClient:
		return true
	}
	return false
}

// JoinedByType is the discriminant of a parent reference
type JoinedByType string

const (
	JoinedByAdmin JoinedByType = "admin"
	JoinedByParty JoinedByType = "party"
)

func (t JoinedByType) String() string {
	return string(t)
}

// ParentRef points either at an Admin or at another Party. Resolve it by Type, never by
// inspecting the referenced record.
type ParentRef struct {
	Type JoinedByType `json:"type" binding:"required"`
	ID   uint64       `json:"id" binding:"required"`
}

// AdminRef references a root admin
func AdminRef(id uint64) ParentRef {
	return ParentRef{Type: JoinedByAdmin, ID: id}
}

// PartyRef references another party
func PartyRef(id uint64) ParentRef {
	return ParentRef{Type: JoinedByParty, ID: id}
}

func (r ParentRef) IsAdmin() bool {
	return r.Type == JoinedByAdmin
}

func (r ParentRef) IsParty() bool {
	return r.Type == JoinedByParty
}

func (r ParentRef) IsValid() bool {
	return (r.Type == JoinedByAdmin || r.Type == JoinedByParty) && r.ID != 0
}

// StatusField is a flag that cascades down the hierarchy
type StatusField string

const (
	StatusFieldBlocked StatusField = "is_blocked"
	StatusFieldBetLock StatusField = "is_bet_lock"
)

func (f StatusField) IsValid() bool {
	return f == StatusFieldBlocked || f == StatusFieldBetLock
}

// Party structure
type Party struct {
	ID           uint64        `gorm:"primary_key" json:"id"`
	SrNo         uint64        `gorm:"column:sr_no;unique;not null" json:"sr_no"`
	Role         PartyRole     `gorm:"column:role;not null" json:"role"`
	JoinedBy     uint64        `gorm:"column:joined_by;not null" json:"joined_by"`
	JoinedByType JoinedByType  `gorm:"column:joined_by_type;not null" json:"joined_by_type"`
	Uplines      pq.Int64Array `gorm:"column:uplines;type:bigint[]" json:"uplines"`
	Name         string        `gorm:"column:name" json:"name"`
	Username     string        `gorm:"column:username;unique;not null" json:"username"`
	Mobile       string        `gorm:"column:mobile;unique;not null" json:"mobile"`
	Password     string        `gorm:"column:password;not null" json:"-"`
	WalletAmount Amount        `gorm:"column:wallet_amount" sql:"type:decimal(36,18)" json:"wallet_amount"`
	IsBlocked    bool          `gorm:"column:is_blocked" json:"is_blocked"`
	IsBetLock    bool          `gorm:"column:is_bet_lock" json:"is_bet_lock"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

func (Party) TableName() string {
	return "parties"
}

// Parent returns the tagged reference this party joined under
func (p *Party) Parent() ParentRef {
	return ParentRef{Type: p.JoinedByType, ID: p.JoinedBy}
}

// UplineIDs returns the ancestor chain root first
func (p *Party) UplineIDs() []uint64 {
	ids := make([]uint64, len(p.Uplines))
	for i, id := range p.Uplines {
		ids[i] = uint64(id)
	}
	return ids
}

// HasUpline reports whether id is one of the party ancestors below the root admin
func (p *Party) HasUpline(id uint64) bool {
	// uplines[0] is always an admin id when the chain is rooted correctly
	for i, upline := range p.Uplines {
		if i == 0 {
			continue
		}
		if uint64(upline) == id {
			return true
		}
	}
	return false
}

// ChildUplines computes the ancestor chain of a party joining under p
func (p *Party) ChildUplines() pq.Int64Array {
	uplines := make(pq.Int64Array, 0, len(p.Uplines)+1)
	uplines = append(uplines, p.Uplines...)
	return append(uplines, int64(p.ID))
}

// EncodePass encode the password
func (p *Party) EncodePass() error {
	hash, err := bcrypt.GenerateFromPassword([]byte(p.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	p.Password = string(hash)
	return nil
}

// ValidatePass check if the given password matches the party
func (p *Party) ValidatePass(pass string) bool {
	if err := bcrypt.CompareHashAndPassword([]byte(p.Password), []byte(pass)); err != nil {
		return false
	}
	return true
}

// PartyWithParent is a party joined with the display name of whoever it joined under
type PartyWithParent struct {
	Party
	ParentName string `gorm:"column:parent_name" json:"parent_name"`
}

// PartyList structure
type PartyList struct {
	Parties []PartyWithParent `json:"parties"`
	Meta    PagingMeta        `json:"meta"`
}

// PartyFilter narrows ListParties
type PartyFilter struct {
	Search string
	Parent *ParentRef
	Role   PartyRole
}

// PartyProfile holds the fields supplied on creation
type PartyProfile struct {
	Name     string `json:"name" binding:"required"`
	Username string `json:"username" binding:"required"`
	Mobile   string `json:"mobile" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// PartyPatch carries the mutable fields of a party, nil means unchanged
type PartyPatch struct {
	Name     *string    `json:"name"`
	Username *string    `json:"username"`
	Mobile   *string    `json:"mobile"`
	Password *string    `json:"password"`
	JoinedBy *ParentRef `json:"joined_by"`
}

// PartyMove re-parents a party, Uplines holds the new chain of the party and of every descendant
type PartyMove struct {
	Parent  ParentRef
	Uplines map[uint64]pq.Int64Array
}

// IsEmpty is true when the patch changes nothing
func (p PartyPatch) IsEmpty() bool {
	return p.Name == nil && p.Username == nil && p.Mobile == nil && p.Password == nil && p.JoinedBy == nil
}

// NewParty creates a new party structure
func NewParty(srNo uint64, role PartyRole, parent ParentRef, uplines pq.Int64Array, profile PartyProfile) *Party {
	return &Party{
		SrNo:         srNo,
		Role:         role,
		JoinedBy:     parent.ID,
		JoinedByType: parent.Type,
		Uplines:      uplines,
		Name:         profile.Name,
		Username:     profile.Username,
		Mobile:       profile.Mobile,
		Password:     profile.Password,
		WalletAmount: NewAmount(nil),
	}
}
