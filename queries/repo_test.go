package queries

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgconn"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"
	. "github.com/smartystreets/goconvey/convey"
	"gitlab.com/kuberbook/settlement_api/conv"
	"gitlab.com/kuberbook/settlement_api/model"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDB() (*gorm.DB, sqlmock.Sqlmock) {
	logger := log.With().Str("test", "queries").Str("method", "setupDB").Logger()
	db, mock, err := sqlmock.New()
	if err != nil {
		logger.Fatal().Msgf("can't create sqlmock: %s", err)
	}

	dialector := postgres.New(postgres.Config{
		DSN:                  "postgres-mock",
		DriverName:           "postgres",
		Conn:                 db,
		PreferSimpleProtocol: true,
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		logger.Fatal().Msgf("can't open gorm connection: %s", err)
	}
	return gormDB, mock
}

func setupRepo() (*Repo, sqlmock.Sqlmock) {
	db, mock := setupDB()
	return &Repo{
		Conn:       db,
		ConnReader: db,
	}, mock
}

func q(sql string) string {
	return regexp.QuoteMeta(sql)
}

func TestMapError(t *testing.T) {
	Convey("storage errors are mapped to engine error kinds", t, func() {
		So(mapError(nil, "party"), ShouldBeNil)
		So(model.ErrorKindOf(mapError(gorm.ErrRecordNotFound, "party")), ShouldEqual, model.ErrKindNotFound)

		conflict := mapError(&pgconn.PgError{Code: "23505", ConstraintName: "parties_mobile_key"}, "party")
		So(model.ErrorKindOf(conflict), ShouldEqual, model.ErrKindConflict)
		var e *model.Error
		So(errors.As(conflict, &e), ShouldBeTrue)
		So(e.Fields, ShouldResemble, []string{"parties_mobile_key"})

		other := mapError(&pgconn.PgError{Code: "23503"}, "party")
		So(model.ErrorKindOf(other), ShouldEqual, model.ErrKindInternal)
		So(errors.Is(other, model.ErrInternal), ShouldBeTrue)
	})
}

func TestRepo_GetParty(t *testing.T) {
	r, mock := setupRepo()
	ctx := context.TODO()

	Convey("an existing party is loaded by id", t, func() {
		rows := sqlmock.NewRows([]string{"id", "sr_no", "role", "joined_by", "joined_by_type", "uplines", "username", "mobile", "wallet_amount", "is_blocked"}).
			AddRow(5, 3, "master", 1, "admin", "{1}", "party5", "+919876543205", "120.50", false)
		mock.ExpectQuery(q(`SELECT * FROM "parties" WHERE id = $1`)).
			WithArgs(5).
			WillReturnRows(rows)

		party, err := r.GetParty(ctx, 5)
		So(err, ShouldBeNil)
		So(party.ID, ShouldEqual, uint64(5))
		So(party.Parent(), ShouldResemble, model.AdminRef(1))
		So(party.UplineIDs(), ShouldResemble, []uint64{1})
		expected, _ := conv.ParseAmount("120.5")
		So(party.WalletAmount.Big().Cmp(expected), ShouldEqual, 0)
		So(mock.ExpectationsWereMet(), ShouldBeNil)
	})

	Convey("a missing party is not found", t, func() {
		mock.ExpectQuery(q(`SELECT * FROM "parties" WHERE id = $1`)).
			WithArgs(9).
			WillReturnRows(sqlmock.NewRows([]string{"id"}))

		_, err := r.GetParty(ctx, 9)
		So(model.ErrorKindOf(err), ShouldEqual, model.ErrKindNotFound)
		So(mock.ExpectationsWereMet(), ShouldBeNil)
	})

	Convey("a broken connection is internal", t, func() {
		mock.ExpectQuery(q(`SELECT * FROM "parties" WHERE id = $1`)).
			WithArgs(9).
			WillReturnError(errors.New("connection reset by peer"))

		_, err := r.GetParty(ctx, 9)
		So(model.ErrorKindOf(err), ShouldEqual, model.ErrKindInternal)
		So(mock.ExpectationsWereMet(), ShouldBeNil)
	})
}

func TestRepo_CreateRate(t *testing.T) {
	r, mock := setupRepo()
	ctx := context.TODO()

	Convey("the unique index on party and market reports a conflict", t, func() {
		mock.ExpectBegin()
		mock.ExpectQuery(q(`INSERT INTO "rate_contracts"`)).
			WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "rate_contracts_party_market_idx"})
		mock.ExpectRollback()

		rate := model.NewRateContract(5, "kalyan", model.PartyRoleMaster, model.RateSpec{})
		err := r.CreateRate(ctx, rate)
		So(model.ErrorKindOf(err), ShouldEqual, model.ErrKindConflict)
		So(mock.ExpectationsWereMet(), ShouldBeNil)
	})
}

func TestRepo_DeleteRate(t *testing.T) {
	r, mock := setupRepo()
	ctx := context.TODO()

	Convey("deleting a rate that does not exist is not found", t, func() {
		mock.ExpectBegin()
		mock.ExpectExec(q(`DELETE FROM "rate_contracts" WHERE party_id = $1 AND market_id = $2`)).
			WithArgs(5, "kalyan").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		err := r.DeleteRate(ctx, 5, "kalyan")
		So(model.ErrorKindOf(err), ShouldEqual, model.ErrKindNotFound)
		So(mock.ExpectationsWereMet(), ShouldBeNil)
	})

	Convey("an existing rate is removed", t, func() {
		mock.ExpectBegin()
		mock.ExpectExec(q(`DELETE FROM "rate_contracts" WHERE party_id = $1 AND market_id = $2`)).
			WithArgs(5, "kalyan").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		So(r.DeleteRate(ctx, 5, "kalyan"), ShouldBeNil)
		So(mock.ExpectationsWereMet(), ShouldBeNil)
	})
}

func TestRepo_SumActiveWallets(t *testing.T) {
	r, mock := setupRepo()
	ctx := context.TODO()

	Convey("blocked parties are left out of the wallet total", t, func() {
		mock.ExpectQuery(q(`SELECT COALESCE(SUM(wallet_amount), 0) AS total FROM "parties" WHERE is_blocked = $1`)).
			WithArgs(false).
			WillReturnRows(sqlmock.NewRows([]string{"total"}).AddRow("1250.75"))

		total, err := r.SumActiveWallets(ctx)
		So(err, ShouldBeNil)
		expected, _ := conv.ParseAmount("1250.75")
		So(total.Cmp(expected), ShouldEqual, 0)
		So(mock.ExpectationsWereMet(), ShouldBeNil)
	})
}

func TestRepo_SetStatus(t *testing.T) {
	r, mock := setupRepo()
	ctx := context.TODO()

	Convey("nothing is written for an empty id list", t, func() {
		affected, err := r.SetStatus(ctx, nil, model.StatusFieldBlocked, true)
		So(err, ShouldBeNil)
		So(affected, ShouldEqual, int64(0))
		So(mock.ExpectationsWereMet(), ShouldBeNil)
	})

	Convey("the flag is written on every id at once", t, func() {
		mock.ExpectBegin()
		mock.ExpectExec(q(`UPDATE "parties" SET "is_bet_lock"=$1 WHERE id IN ($2,$3,$4)`)).
			WithArgs(true, 2, 3, 4).
			WillReturnResult(sqlmock.NewResult(0, 3))
		mock.ExpectCommit()

		affected, err := r.SetStatus(ctx, []uint64{2, 3, 4}, model.StatusFieldBetLock, true)
		So(err, ShouldBeNil)
		So(affected, ShouldEqual, int64(3))
		So(mock.ExpectationsWereMet(), ShouldBeNil)
	})
}

func TestRepo_NextSrNo(t *testing.T) {
	r, mock := setupRepo()
	ctx := context.TODO()

	Convey("serial numbers come from the sequence", t, func() {
		mock.ExpectQuery(q(`SELECT nextval('parties_sr_no_seq')`)).
			WillReturnRows(sqlmock.NewRows([]string{"nextval"}).AddRow(3))

		next, err := r.NextSrNo(ctx)
		So(err, ShouldBeNil)
		So(next, ShouldEqual, uint64(3))
		So(mock.ExpectationsWereMet(), ShouldBeNil)
	})
}

func TestRepo_UpdateParty(t *testing.T) {
	r, mock := setupRepo()
	ctx := context.TODO()
	move := &model.PartyMove{
		Parent:  model.PartyRef(4),
		Uplines: map[uint64]pq.Int64Array{7: {1, 4}},
	}

	Convey("nothing is written for an empty patch", t, func() {
		So(r.UpdateParty(ctx, 7, nil, nil), ShouldBeNil)
		So(mock.ExpectationsWereMet(), ShouldBeNil)
	})

	Convey("the profile, the parent and the uplines are written in one transaction", t, func() {
		mock.ExpectBegin()
		mock.ExpectExec(q(`UPDATE "parties" SET`)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(q(`UPDATE "parties" SET "uplines"=$1 WHERE id = $2`)).
			WithArgs(sqlmock.AnyArg(), 7).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := r.UpdateParty(ctx, 7, map[string]interface{}{"name": "Bee"}, move)
		So(err, ShouldBeNil)
		So(mock.ExpectationsWereMet(), ShouldBeNil)
	})

	Convey("a failed uplines rewrite rolls the profile back", t, func() {
		mock.ExpectBegin()
		mock.ExpectExec(q(`UPDATE "parties" SET`)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(q(`UPDATE "parties" SET "uplines"=$1 WHERE id = $2`)).
			WillReturnError(errors.New("connection reset by peer"))
		mock.ExpectRollback()

		err := r.UpdateParty(ctx, 7, map[string]interface{}{"name": "Bee"}, move)
		So(model.ErrorKindOf(err), ShouldEqual, model.ErrKindInternal)
		So(mock.ExpectationsWereMet(), ShouldBeNil)
	})

	Convey("an unknown party is not found and rolled back", t, func() {
		mock.ExpectBegin()
		mock.ExpectExec(q(`UPDATE "parties" SET`)).
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectRollback()

		err := r.UpdateParty(ctx, 7, map[string]interface{}{"name": "Bee"}, nil)
		So(model.ErrorKindOf(err), ShouldEqual, model.ErrKindNotFound)
		So(mock.ExpectationsWereMet(), ShouldBeNil)
	})
}

// utcInstant matches a time argument equal to want and expressed in UTC
type utcInstant struct{ want time.Time }

func (u utcInstant) Match(v driver.Value) bool {
	t, ok := v.(time.Time)
	return ok && t.Location() == time.UTC && t.Equal(u.want)
}

func TestRepo_SumTransactions(t *testing.T) {
	r, mock := setupRepo()
	ctx := context.TODO()

	Convey("the local day window is sent as UTC instants", t, func() {
		loc, err := time.LoadLocation("Asia/Kolkata")
		So(err, ShouldBeNil)
		window := model.DayWindow(time.Date(2024, 3, 10, 12, 0, 0, 0, loc), loc)
		start := time.Date(2024, 3, 9, 18, 30, 0, 0, time.UTC)
		end := start.AddDate(0, 0, 1).Add(-time.Millisecond)

		mock.ExpectQuery(q(`SELECT user_id, type, added_by, payment_for, SUM(amount) AS total FROM "transactions" WHERE created_at >= $1 AND created_at <= $2`)).
			WithArgs(utcInstant{start}, utcInstant{end}).
			WillReturnRows(sqlmock.NewRows([]string{"user_id", "type", "added_by", "payment_for", "total"}).
				AddRow(7, "credit", 1, "deposit", "40.00"))

		buckets, err := r.SumTransactions(ctx, window)
		So(err, ShouldBeNil)
		So(buckets, ShouldHaveLength, 1)
		So(mock.ExpectationsWereMet(), ShouldBeNil)
	})
}
