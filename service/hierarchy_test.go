package service

import (
	"context"
	"errors"
	"testing"

	"github.com/lib/pq"
	. "github.com/smartystreets/goconvey/convey"
	"gitlab.com/kuberbook/settlement_api/model"
)

func strPtr(s string) *string { return &s }

func TestCreateParty(t *testing.T) {
	ctx := context.Background()

	Convey("Given an admin X", t, func() {
		service, store := setupService()
		admin := store.AddAdmin(model.Admin{Name: "X", Username: "x"})

		Convey("a party created under X has uplines [X]", func() {
			a := mustCreate(service, model.AdminRef(admin.ID), model.PartyRoleSuper, 1)
			So(a.Uplines, ShouldResemble, pq.Int64Array{int64(admin.ID)})
			So(a.SrNo, ShouldEqual, uint64(1))
			So(a.Mobile, ShouldEqual, "+919876543201")
			So(a.ValidatePass("secret"), ShouldBeTrue)

			Convey("and a party created under A has uplines [X, A]", func() {
				b := mustCreate(service, model.PartyRef(a.ID), model.PartyRoleMaster, 2)
				So(b.Uplines, ShouldResemble, pq.Int64Array{int64(admin.ID), int64(a.ID)})

				c := mustCreate(service, model.PartyRef(b.ID), model.PartyRoleClient, 3)
				So(c.Uplines, ShouldResemble, append(b.Uplines, int64(b.ID)))
			})
		})

		Convey("sr_no is contiguous from 1 over sequential creations", func() {
			for i := 1; i <= 5; i++ {
				p := mustCreate(service, model.AdminRef(admin.ID), model.PartyRoleClient, i)
				So(p.SrNo, ShouldEqual, uint64(i))
			}
		})

		Convey("sr_no of a deleted party is never handed out again", func() {
			mustCreate(service, model.AdminRef(admin.ID), model.PartyRoleClient, 1)
			b := mustCreate(service, model.AdminRef(admin.ID), model.PartyRoleClient, 2)
			So(service.DeleteParty(ctx, b.ID), ShouldBeNil)

			c := mustCreate(service, model.AdminRef(admin.ID), model.PartyRoleClient, 3)
			So(c.SrNo, ShouldEqual, uint64(3))
		})

		Convey("admin and party ids are counted apart", func() {
			a := mustCreate(service, model.AdminRef(admin.ID), model.PartyRoleSuper, 1)
			So(a.ID, ShouldEqual, admin.ID)
			b := mustCreate(service, model.PartyRef(a.ID), model.PartyRoleMaster, 2)
			So(b.Uplines, ShouldResemble, pq.Int64Array{int64(admin.ID), int64(a.ID)})
			So(b.HasUpline(a.ID), ShouldBeTrue)
			So(a.HasUpline(a.ID), ShouldBeFalse)

			Convey("and a party under an admin sharing its id is not its descendant", func() {
				d := mustCreate(service, model.AdminRef(admin.ID), model.PartyRoleSuper, 3)
				parent := model.PartyRef(d.ID)
				_, err := service.UpdateParty(ctx, a.ID, model.PartyPatch{JoinedBy: &parent})
				So(err, ShouldBeNil)

				movedB, _ := store.GetParty(ctx, b.ID)
				So(movedB.Uplines, ShouldResemble, pq.Int64Array{int64(admin.ID), int64(d.ID), int64(a.ID)})

				affected, err := service.CascadeStatus(ctx, a.ID, model.StatusFieldBlocked, true)
				So(err, ShouldBeNil)
				So(affected, ShouldEqual, int64(2))
				untouched, _ := store.GetParty(ctx, d.ID)
				So(untouched.IsBlocked, ShouldBeFalse)
			})
		})

		Convey("a duplicate username is a conflict naming the field", func() {
			mustCreate(service, model.AdminRef(admin.ID), model.PartyRoleSuper, 1)
			dup := profile(2)
			dup.Username = "party1"
			_, err := service.CreateParty(ctx, model.AdminRef(admin.ID), model.PartyRoleSuper, dup)
			So(errors.Is(err, model.ErrConflict), ShouldBeTrue)
			So(err.(*model.Error).Fields, ShouldResemble, []string{"username"})
		})

		Convey("the same mobile written differently is still a conflict", func() {
			mustCreate(service, model.AdminRef(admin.ID), model.PartyRoleSuper, 1)
			dup := profile(2)
			dup.Mobile = "+91 98765 43201"
			_, err := service.CreateParty(ctx, model.AdminRef(admin.ID), model.PartyRoleSuper, dup)
			So(errors.Is(err, model.ErrConflict), ShouldBeTrue)
			So(err.(*model.Error).Fields, ShouldResemble, []string{"mobile"})
		})

		Convey("an unknown parent is not found and nothing is written", func() {
			_, err := service.CreateParty(ctx, model.PartyRef(999), model.PartyRoleClient, profile(1))
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
			_, err = service.CreateParty(ctx, model.AdminRef(999), model.PartyRoleClient, profile(1))
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)

			list, err := service.ListParties(ctx, model.PartyFilter{}, 1, 10)
			So(err, ShouldBeNil)
			So(list.Meta.Count, ShouldEqual, int64(0))
		})

		Convey("missing fields are listed in the validation error", func() {
			_, err := service.CreateParty(ctx, model.AdminRef(admin.ID), "", model.PartyProfile{Name: "n"})
			So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
			So(err.(*model.Error).Fields, ShouldResemble, []string{"username", "mobile", "password", "role"})
		})

		Convey("an unparsable mobile is a validation error", func() {
			bad := profile(1)
			bad.Mobile = "not a number"
			_, err := service.CreateParty(ctx, model.AdminRef(admin.ID), model.PartyRoleClient, bad)
			So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
			So(err.(*model.Error).Fields, ShouldResemble, []string{"mobile"})
		})
	})
}

func TestUpdateParty(t *testing.T) {
	ctx := context.Background()

	Convey("Given X -> A -> B -> C and X -> D", t, func() {
		service, store := setupService()
		admin := store.AddAdmin(model.Admin{Name: "X", Username: "x"})
		a := mustCreate(service, model.AdminRef(admin.ID), model.PartyRoleSuper, 1)
		b := mustCreate(service, model.PartyRef(a.ID), model.PartyRoleMaster, 2)
		c := mustCreate(service, model.PartyRef(b.ID), model.PartyRoleClient, 3)
		d := mustCreate(service, model.AdminRef(admin.ID), model.PartyRoleSuper, 4)

		Convey("updating the profile keeps uniqueness excluding the party itself", func() {
			updated, err := service.UpdateParty(ctx, b.ID, model.PartyPatch{
				Name:     strPtr("Bee"),
				Username: strPtr("party2"),
			})
			So(err, ShouldBeNil)
			So(updated.Name, ShouldEqual, "Bee")
			So(updated.ParentName, ShouldEqual, "Party 1")
		})

		Convey("taking another party's username is a conflict and changes nothing", func() {
			_, err := service.UpdateParty(ctx, b.ID, model.PartyPatch{Name: strPtr("Bee"), Username: strPtr("party1")})
			So(errors.Is(err, model.ErrConflict), ShouldBeTrue)
			loaded, _ := service.GetPartyByID(ctx, b.ID)
			So(loaded.Name, ShouldEqual, "Party 2")
		})

		Convey("an unknown id is not found", func() {
			_, err := service.UpdateParty(ctx, 999, model.PartyPatch{Name: strPtr("n")})
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
		})

		Convey("moving B under D rewrites the uplines of B and C", func() {
			parent := model.PartyRef(d.ID)
			_, err := service.UpdateParty(ctx, b.ID, model.PartyPatch{JoinedBy: &parent})
			So(err, ShouldBeNil)

			movedB, _ := store.GetParty(ctx, b.ID)
			movedC, _ := store.GetParty(ctx, c.ID)
			So(movedB.Uplines, ShouldResemble, pq.Int64Array{int64(admin.ID), int64(d.ID)})
			So(movedC.Uplines, ShouldResemble, pq.Int64Array{int64(admin.ID), int64(d.ID), int64(b.ID)})
		})

		Convey("a failed write leaves the profile and the hierarchy untouched", func() {
			store.FailNext("UpdateParty", 1, errors.New("connection reset by peer"))
			parent := model.PartyRef(d.ID)
			_, err := service.UpdateParty(ctx, b.ID, model.PartyPatch{Name: strPtr("Bee"), JoinedBy: &parent})
			So(errors.Is(err, model.ErrInternal), ShouldBeTrue)

			loadedB, _ := store.GetParty(ctx, b.ID)
			loadedC, _ := store.GetParty(ctx, c.ID)
			So(loadedB.Name, ShouldEqual, "Party 2")
			So(loadedB.Parent(), ShouldResemble, model.PartyRef(a.ID))
			So(loadedB.Uplines, ShouldResemble, pq.Int64Array{int64(admin.ID), int64(a.ID)})
			So(loadedC.Uplines, ShouldResemble, pq.Int64Array{int64(admin.ID), int64(a.ID), int64(b.ID)})
		})

		Convey("moving A under its own descendant C is rejected", func() {
			parent := model.PartyRef(c.ID)
			_, err := service.UpdateParty(ctx, a.ID, model.PartyPatch{JoinedBy: &parent})
			So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
			So(err.(*model.Error).Fields, ShouldResemble, []string{"joined_by"})
		})

		Convey("moving A under itself is rejected", func() {
			parent := model.PartyRef(a.ID)
			_, err := service.UpdateParty(ctx, a.ID, model.PartyPatch{JoinedBy: &parent})
			So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
		})
	})
}

func TestCascadeStatus(t *testing.T) {
	ctx := context.Background()

	Convey("Given X -> A -> B -> C and X -> D", t, func() {
		service, store := setupService()
		admin := store.AddAdmin(model.Admin{Name: "X", Username: "x"})
		a := mustCreate(service, model.AdminRef(admin.ID), model.PartyRoleSuper, 1)
		b := mustCreate(service, model.PartyRef(a.ID), model.PartyRoleMaster, 2)
		c := mustCreate(service, model.PartyRef(b.ID), model.PartyRoleClient, 3)
		d := mustCreate(service, model.AdminRef(admin.ID), model.PartyRoleSuper, 4)

		Convey("blocking A blocks every transitive descendant", func() {
			affected, err := service.CascadeStatus(ctx, a.ID, model.StatusFieldBlocked, true)
			So(err, ShouldBeNil)
			So(affected, ShouldEqual, int64(3))

			for _, id := range []uint64{a.ID, b.ID, c.ID} {
				p, _ := store.GetParty(ctx, id)
				So(p.IsBlocked, ShouldBeTrue)
			}
			other, _ := store.GetParty(ctx, d.ID)
			So(other.IsBlocked, ShouldBeFalse)

			Convey("and unblocking A releases them again", func() {
				_, err := service.CascadeStatus(ctx, a.ID, model.StatusFieldBlocked, false)
				So(err, ShouldBeNil)
				p, _ := store.GetParty(ctx, c.ID)
				So(p.IsBlocked, ShouldBeFalse)
			})
		})

		Convey("every party whose uplines contain B gets the bet lock", func() {
			_, err := service.CascadeStatus(ctx, b.ID, model.StatusFieldBetLock, true)
			So(err, ShouldBeNil)
			list, _ := service.ListParties(ctx, model.PartyFilter{}, 1, 100)
			for _, p := range list.Parties {
				if p.ID == b.ID || p.HasUpline(b.ID) {
					So(p.IsBetLock, ShouldBeTrue)
				} else {
					So(p.IsBetLock, ShouldBeFalse)
				}
			}
		})

		Convey("an unknown field is a validation error", func() {
			_, err := service.CascadeStatus(ctx, a.ID, model.StatusField("is_admin"), true)
			So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
		})

		Convey("an unknown party is not found", func() {
			_, err := service.CascadeStatus(ctx, 999, model.StatusFieldBlocked, true)
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
		})
	})
}

func TestListAndDeleteParties(t *testing.T) {
	ctx := context.Background()

	Convey("Given several parties", t, func() {
		service, store := setupService()
		admin := store.AddAdmin(model.Admin{Name: "X", Username: "x"})
		a := mustCreate(service, model.AdminRef(admin.ID), model.PartyRoleSuper, 1)
		mustCreate(service, model.PartyRef(a.ID), model.PartyRoleMaster, 2)
		mustCreate(service, model.PartyRef(a.ID), model.PartyRoleMaster, 3)
		mustCreate(service, model.AdminRef(admin.ID), model.PartyRoleSuper, 4)

		Convey("filtering by parent returns its direct children in sr_no order", func() {
			parent := model.PartyRef(a.ID)
			list, err := service.ListParties(ctx, model.PartyFilter{Parent: &parent}, 1, 10)
			So(err, ShouldBeNil)
			So(list.Meta.Count, ShouldEqual, int64(2))
			So(list.Parties[0].Username, ShouldEqual, "party2")
			So(list.Parties[1].Username, ShouldEqual, "party3")
			So(list.Parties[0].ParentName, ShouldEqual, "Party 1")
		})

		Convey("free text search matches the mobile", func() {
			list, err := service.ListParties(ctx, model.PartyFilter{Search: "43204"}, 1, 10)
			So(err, ShouldBeNil)
			So(list.Parties, ShouldHaveLength, 1)
			So(list.Parties[0].ParentName, ShouldEqual, "X")
		})

		Convey("pages are cut after ordering", func() {
			list, err := service.ListParties(ctx, model.PartyFilter{}, 2, 3)
			So(err, ShouldBeNil)
			So(list.Meta.Count, ShouldEqual, int64(4))
			So(list.Parties, ShouldHaveLength, 1)
			So(list.Parties[0].SrNo, ShouldEqual, uint64(4))
		})

		Convey("deleting twice fails the second time", func() {
			So(service.DeleteParty(ctx, a.ID), ShouldBeNil)
			So(errors.Is(service.DeleteParty(ctx, a.ID), model.ErrNotFound), ShouldBeTrue)
			_, err := service.GetPartyByID(ctx, a.ID)
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
		})
	})
}
