package service

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/encoding/json"
	. "github.com/smartystreets/goconvey/convey"
	"gitlab.com/kuberbook/settlement_api/model"
)

func rateSpec(commission string) model.RateSpec {
	return model.RateSpec{
		Commission: model.RateTiers{
			Admin:  mustAmount(commission),
			Super:  mustAmount("2"),
			Master: mustAmount("1.5"),
			Client: mustAmount("1"),
		},
		Partnership: model.RateTiers{
			Admin:  mustAmount("40"),
			Super:  mustAmount("30"),
			Master: mustAmount("20"),
			Client: mustAmount("10"),
		},
	}
}

func TestRates(t *testing.T) {
	ctx := context.Background()

	Convey("Given a master party", t, func() {
		service, store := setupService()
		admin := store.AddAdmin(model.Admin{Name: "X", Username: "x"})
		party := mustCreate(service, model.AdminRef(admin.ID), model.PartyRoleMaster, 1)

		Convey("SetRate snapshots the current role", func() {
			rate, err := service.SetRate(ctx, party.ID, "kalyan", rateSpec("3"))
			So(err, ShouldBeNil)
			So(rate.Role, ShouldEqual, model.PartyRoleMaster)
			So(rate.AdminCommission.String(), ShouldEqual, "3.00")

			Convey("a second SetRate for the same market conflicts and keeps the first contract", func() {
				_, err := service.SetRate(ctx, party.ID, "kalyan", rateSpec("5"))
				So(errors.Is(err, model.ErrConflict), ShouldBeTrue)

				stored, err := service.GetRate(ctx, party.ID, "kalyan")
				So(err, ShouldBeNil)
				So(stored.AdminCommission.String(), ShouldEqual, "3.00")
				So(stored.ID, ShouldEqual, rate.ID)
			})

			Convey("DeleteRate removes it and a second delete is not found", func() {
				So(service.DeleteRate(ctx, party.ID, "kalyan"), ShouldBeNil)
				So(errors.Is(service.DeleteRate(ctx, party.ID, "kalyan"), model.ErrNotFound), ShouldBeTrue)
				_, err := service.GetRate(ctx, party.ID, "kalyan")
				So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
			})

			Convey("ListRates returns the contracts of the party", func() {
				_, err := service.SetRate(ctx, party.ID, "alpha", rateSpec("1"))
				So(err, ShouldBeNil)
				rates, err := service.ListRates(ctx, party.ID)
				So(err, ShouldBeNil)
				So(rates, ShouldHaveLength, 2)
				So(rates[0].MarketID, ShouldEqual, "alpha")
			})
		})

		Convey("an unknown party is not found", func() {
			_, err := service.SetRate(ctx, 999, "kalyan", rateSpec("3"))
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
		})

		Convey("percentages outside [0, 100] are rejected by field", func() {
			spec := rateSpec("101")
			spec.Partnership.Client = mustAmount("-1")
			_, err := service.SetRate(ctx, party.ID, "kalyan", spec)
			So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
			So(err.(*model.Error).Fields, ShouldResemble, []string{"commission.admin", "partnership.client"})
		})

		Convey("percentages finer than two decimals are rejected by field", func() {
			spec := rateSpec("3")
			So(json.Unmarshal([]byte(`"1.255"`), &spec.Commission.Master), ShouldBeNil)
			_, err := service.SetRate(ctx, party.ID, "kalyan", spec)
			So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
			So(err.(*model.Error).Fields, ShouldResemble, []string{"commission.master"})
		})
	})
}
