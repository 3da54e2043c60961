package queries

import (
	"context"
	"strings"

	"github.com/ericlagergren/decimal"
	"gitlab.com/kuberbook/settlement_api/model"
	"gorm.io/gorm"
)

const partyWithParentSelect = "p.*, COALESCE(pp.name, a.name, '') AS parent_name"

func (repo *Repo) partiesWithParent(ctx context.Context) *gorm.DB {
	return repo.ConnReader.WithContext(ctx).
		Table("parties p").
		Joins("LEFT JOIN parties pp ON p.joined_by_type = ? AND pp.id = p.joined_by", model.JoinedByParty).
		Joins("LEFT JOIN admins a ON p.joined_by_type = ? AND a.id = p.joined_by", model.JoinedByAdmin)
}

// GetAdmin by id
func (repo *Repo) GetAdmin(ctx context.Context, id uint64) (*model.Admin, error) {
	admin := model.Admin{}
	err := repo.ConnReader.WithContext(ctx).Where("id = ?", id).First(&admin).Error
	if err != nil {
		return nil, mapError(err, "admin")
	}
	return &admin, nil
}

func (repo *Repo) GetAdminByUsername(ctx context.Context, username string) (*model.Admin, error) {
	admin := model.Admin{}
	err := repo.ConnReader.WithContext(ctx).Where("username = ?", username).First(&admin).Error
	if err != nil {
		return nil, mapError(err, "admin")
	}
	return &admin, nil
}

// GetParty by id
func (repo *Repo) GetParty(ctx context.Context, id uint64) (*model.Party, error) {
	party := model.Party{}
	err := repo.ConnReader.WithContext(ctx).Where("id = ?", id).First(&party).Error
	if err != nil {
		return nil, mapError(err, "party")
	}
	return &party, nil
}

// GetPartyWithParent loads a party joined with its parent display name
func (repo *Repo) GetPartyWithParent(ctx context.Context, id uint64) (*model.PartyWithParent, error) {
	party := model.PartyWithParent{}
	err := repo.partiesWithParent(ctx).Select(partyWithParentSelect).Where("p.id = ?", id).Take(&party).Error
	if err != nil {
		return nil, mapError(err, "party")
	}
	return &party, nil
}

func (repo *Repo) GetPartyByUsername(ctx context.Context, username string) (*model.Party, error) {
	party := model.Party{}
	err := repo.ConnReader.WithContext(ctx).Where("username = ?", username).First(&party).Error
	if err != nil {
		return nil, mapError(err, "party")
	}
	return &party, nil
}

// FindDuplicateParty reads from the writer so a just created party is always visible
func (repo *Repo) FindDuplicateParty(ctx context.Context, username, mobile string, excludeID uint64) (*model.Party, error) {
	party := model.Party{}
	q := repo.Conn.WithContext(ctx).Where("(username = ? OR mobile = ?)", username, mobile)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	err := q.Limit(1).Find(&party).Error
	if err != nil {
		return nil, mapError(err, "party")
	}
	if party.ID == 0 {
		return nil, nil
	}
	return &party, nil
}

// NextSrNo draws from parties_sr_no_seq, numbers of deleted parties are never handed out again
func (repo *Repo) NextSrNo(ctx context.Context) (uint64, error) {
	var next uint64
	row := repo.Conn.WithContext(ctx).Raw("SELECT nextval('parties_sr_no_seq')").Row()
	if err := row.Scan(&next); err != nil {
		return 0, mapError(err, "sr_no")
	}
	return next, nil
}

func (repo *Repo) CreateParty(ctx context.Context, party *model.Party) error {
	return mapError(repo.Conn.WithContext(ctx).Create(party).Error, "party")
}

func (repo *Repo) UpdateParty(ctx context.Context, id uint64, fields map[string]interface{}, move *model.PartyMove) error {
	columns := make(map[string]interface{}, len(fields)+2)
	for column, value := range fields {
		columns[column] = value
	}
	if move != nil {
		columns["joined_by"] = move.Parent.ID
		columns["joined_by_type"] = move.Parent.Type
	}
	if len(columns) == 0 {
		return nil
	}
	err := repo.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		db := tx.Model(&model.Party{}).Where("id = ?", id).Updates(columns)
		if db.Error != nil {
			return db.Error
		}
		if db.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if move == nil {
			return nil
		}
		for partyID, chain := range move.Uplines {
			if err := tx.Model(&model.Party{}).Where("id = ?", partyID).UpdateColumn("uplines", chain).Error; err != nil {
				return err
			}
		}
		return nil
	})
	return mapError(err, "party")
}

func (repo *Repo) DeleteParty(ctx context.Context, id uint64) error {
	db := repo.Conn.WithContext(ctx).Where("id = ?", id).Delete(&model.Party{})
	if db.Error != nil {
		return mapError(db.Error, "party")
	}
	if db.RowsAffected == 0 {
		return model.NewNotFoundError("party not found")
	}
	return nil
}

// ListChildren returns the parties that joined directly under any of parentIDs
func (repo *Repo) ListChildren(ctx context.Context, parentIDs []uint64) ([]model.Party, error) {
	parties := []model.Party{}
	if len(parentIDs) == 0 {
		return parties, nil
	}
	err := repo.Conn.WithContext(ctx).
		Where("joined_by_type = ? AND joined_by IN ?", model.JoinedByParty, parentIDs).
		Order("sr_no ASC").
		Find(&parties).Error
	if err != nil {
		return nil, mapError(err, "party")
	}
	return parties, nil
}

// SetStatus writes one status flag on every given party
func (repo *Repo) SetStatus(ctx context.Context, ids []uint64, field model.StatusField, value bool) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	db := repo.Conn.WithContext(ctx).Model(&model.Party{}).Where("id IN ?", ids).UpdateColumn(string(field), value)
	if db.Error != nil {
		return 0, mapError(db.Error, "party")
	}
	return db.RowsAffected, nil
}

// ListParties filters by free text and parent, ordered by sr_no
func (repo *Repo) ListParties(ctx context.Context, filter model.PartyFilter, page, limit int) ([]model.PartyWithParent, int64, error) {
	parties := []model.PartyWithParent{}
	var count int64

	q := repo.partiesWithParent(ctx)
	if search := strings.TrimSpace(filter.Search); search != "" {
		like := "%" + search + "%"
		q = q.Where("(p.name ILIKE ? OR p.username ILIKE ? OR p.mobile ILIKE ?)", like, like, like)
	}
	if filter.Parent != nil {
		q = q.Where("p.joined_by_type = ? AND p.joined_by = ?", filter.Parent.Type, filter.Parent.ID)
	}
	if filter.Role != "" {
		q = q.Where("p.role = ?", filter.Role)
	}
	q = q.Session(&gorm.Session{})

	if err := q.Count(&count).Error; err != nil {
		return nil, 0, mapError(err, "party")
	}
	err := q.Select(partyWithParentSelect).
		Order("p.sr_no ASC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&parties).Error
	if err != nil {
		return nil, 0, mapError(err, "party")
	}
	return parties, count, nil
}

// IncrementWallet applies wallet_amount = wallet_amount + amount and logs the credit in one transaction
func (repo *Repo) IncrementWallet(ctx context.Context, id uint64, amount *decimal.Big, entry *model.TransactionEntry) (*decimal.Big, error) {
	wallet := model.PartyWallet{}
	err := repo.Conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		db := tx.Model(&model.Party{}).
			Where("id = ?", id).
			UpdateColumn("wallet_amount", gorm.Expr("wallet_amount + ?", model.NewAmount(amount)))
		if db.Error != nil {
			return db.Error
		}
		if db.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		if entry != nil {
			if err := tx.Create(entry).Error; err != nil {
				return err
			}
		}
		return tx.Table("parties").Select("id, wallet_amount").Where("id = ?", id).Take(&wallet).Error
	})
	if err != nil {
		return nil, mapError(err, "party")
	}
	return wallet.WalletAmount.Big(), nil
}

func (repo *Repo) ListWallets(ctx context.Context) ([]model.PartyWallet, error) {
	wallets := []model.PartyWallet{}
	err := repo.ConnReader.WithContext(ctx).Table("parties").Select("id, wallet_amount").Order("id ASC").Find(&wallets).Error
	if err != nil {
		return nil, mapError(err, "wallets")
	}
	return wallets, nil
}

// SumActiveWallets adds up wallet_amount over every non-blocked party
func (repo *Repo) SumActiveWallets(ctx context.Context) (*decimal.Big, error) {
	data := struct{ Total model.Amount }{}
	err := repo.Conn.WithContext(ctx).
		Table("parties").
		Select("COALESCE(SUM(wallet_amount), 0) AS total").
		Where("is_blocked = ?", false).
		Scan(&data).Error
	if err != nil {
		return nil, mapError(err, "wallet total")
	}
	return data.Total.Big(), nil
}
