package server

import (
	"bytes"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/segmentio/encoding/json"
	. "github.com/smartystreets/goconvey/convey"
	"github.com/spf13/viper"
	"gitlab.com/kuberbook/settlement_api/actions"
	"gitlab.com/kuberbook/settlement_api/config"
	"gitlab.com/kuberbook/settlement_api/conv"
	"gitlab.com/kuberbook/settlement_api/model"
	"gitlab.com/kuberbook/settlement_api/queries/memory"
	"golang.org/x/crypto/bcrypt"
)

type apiClient struct {
	router http.Handler
	admin  model.Admin
}

func setupAPI() apiClient {
	gin.SetMode(gin.TestMode)
	v := viper.New()
	config.SetDefaultVariables(v)
	v.Set("server.api.jwt_token_secret", "access-secret")
	v.Set("server.api.jwt_refresh_secret", "refresh-secret")
	v.Set("settlement.retry_delay", "0s")
	cfg := config.LoadConfig(v)

	store := memory.New()
	hash, err := bcrypt.GenerateFromPassword([]byte("admin-pass"), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	admin := store.AddAdmin(model.Admin{Name: "Root", Username: "root", Password: string(hash)})

	app, err := NewApp(cfg, store)
	if err != nil {
		panic(err)
	}
	return apiClient{
		router: NewRouter(cfg, actions.NewActions(cfg, app.Service, app.Scheduler)),
		admin:  admin,
	}
}

func (api apiClient) do(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			panic(err)
		}
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	api.router.ServeHTTP(w, req)
	return w
}

func (api apiClient) login(username, password string, admin bool) string {
	w := api.do("POST", "/api/v1/login", "", map[string]interface{}{
		"username": username,
		"password": password,
		"admin":    admin,
	})
	if w.Code != http.StatusOK {
		return ""
	}
	tokens := model.TokenPair{}
	if err := json.Unmarshal(w.Body.Bytes(), &tokens); err != nil {
		panic(err)
	}
	return tokens.AccessToken
}

func decode(w *httptest.ResponseRecorder) map[string]interface{} {
	data := map[string]interface{}{}
	if err := json.Unmarshal(w.Body.Bytes(), &data); err != nil {
		panic(err)
	}
	return data
}

func partyPath(party map[string]interface{}, suffix string) string {
	return fmt.Sprintf("/api/v1/parties/%d%s", uint64(party["id"].(float64)), suffix)
}

func partyBody(n string) map[string]interface{} {
	return map[string]interface{}{
		"name":     "Party " + n,
		"username": "party" + n,
		"mobile":   "98765432" + n,
		"password": "secret",
		"role":     "master",
	}
}

func TestPartyRoutes(t *testing.T) {
	Convey("Given a running api with one root admin", t, func() {
		api := setupAPI()
		token := api.login("root", "admin-pass", true)
		So(token, ShouldNotBeEmpty)

		Convey("requests without a token are rejected", func() {
			w := api.do("GET", "/api/v1/parties", "", nil)
			So(w.Code, ShouldEqual, http.StatusUnauthorized)
		})

		Convey("a wrong password fails like an unknown user", func() {
			wrong := api.do("POST", "/api/v1/login", "", map[string]interface{}{"username": "root", "password": "nope", "admin": true})
			unknown := api.do("POST", "/api/v1/login", "", map[string]interface{}{"username": "ghost", "password": "nope", "admin": true})
			So(wrong.Code, ShouldEqual, http.StatusNotFound)
			So(unknown.Code, ShouldEqual, http.StatusNotFound)
			So(wrong.Body.String(), ShouldEqual, unknown.Body.String())
		})

		Convey("an admin creates a party under itself", func() {
			w := api.do("POST", "/api/v1/parties", token, partyBody("01"))
			So(w.Code, ShouldEqual, http.StatusCreated)
			party := decode(w)
			So(party["joined_by_type"], ShouldEqual, "admin")
			So(party["joined_by"], ShouldEqual, float64(api.admin.ID))
			So(party["mobile"], ShouldEqual, "+919876543201")
			So(party["password"], ShouldBeNil)

			Convey("a duplicate username is a conflict", func() {
				body := partyBody("02")
				body["username"] = "party01"
				w := api.do("POST", "/api/v1/parties", token, body)
				So(w.Code, ShouldEqual, http.StatusConflict)
				So(decode(w)["kind"], ShouldEqual, "conflict")
			})

			Convey("the listing shows the parent name", func() {
				w := api.do("GET", "/api/v1/parties?search=party01", token, nil)
				So(w.Code, ShouldEqual, http.StatusOK)
				list := model.PartyList{}
				So(json.Unmarshal(w.Body.Bytes(), &list), ShouldBeNil)
				So(len(list.Parties), ShouldEqual, 1)
				So(list.Parties[0].ParentName, ShouldEqual, "Root")
				So(list.Meta.Count, ShouldEqual, int64(1))
			})

			Convey("the party logs in but cannot edit parties", func() {
				partyToken := api.login("party01", "secret", false)
				So(partyToken, ShouldNotBeEmpty)
				w := api.do("PATCH", partyPath(party, ""), partyToken, map[string]interface{}{"name": "Renamed"})
				So(w.Code, ShouldEqual, http.StatusForbidden)
			})
		})

		Convey("missing fields are listed in a validation error", func() {
			w := api.do("POST", "/api/v1/parties", token, map[string]interface{}{"name": "Only a name"})
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
			fields := decode(w)["fields"]
			So(fields, ShouldResemble, []interface{}{"username", "mobile", "password", "role"})
		})

		Convey("an unknown party is not found", func() {
			w := api.do("GET", "/api/v1/parties/999", token, nil)
			So(w.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestStatusAndDepositRoutes(t *testing.T) {
	Convey("Given a master with one client below it", t, func() {
		api := setupAPI()
		token := api.login("root", "admin-pass", true)

		master := decode(api.do("POST", "/api/v1/parties", token, partyBody("01")))
		masterID := uint64(master["id"].(float64))
		client := partyBody("02")
		client["role"] = "client"
		client["joined_by"] = map[string]interface{}{"type": "party", "id": masterID}
		w := api.do("POST", "/api/v1/parties", token, client)
		So(w.Code, ShouldEqual, http.StatusCreated)
		child := decode(w)

		Convey("blocking the master blocks the client and stops its login", func() {
			w := api.do("PUT", partyPath(master, "/status"), token, map[string]interface{}{"field": "is_blocked", "value": true})
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["affected"], ShouldEqual, float64(2))

			w = api.do("POST", "/api/v1/login", "", map[string]interface{}{"username": "party02", "password": "secret"})
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
		})

		Convey("an unknown status field is rejected", func() {
			w := api.do("PUT", partyPath(master, "/status"), token, map[string]interface{}{"field": "is_admin", "value": true})
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
		})

		Convey("a deposit returns the new balance", func() {
			w := api.do("POST", partyPath(child, "/deposit"), token, map[string]interface{}{"amount": "150.25"})
			So(w.Code, ShouldEqual, http.StatusOK)
			balance, err := conv.ParseAmount(decode(w)["wallet_amount"].(string))
			So(err, ShouldBeNil)
			expected, _ := conv.ParseAmount("150.25")
			So(balance.Cmp(expected), ShouldEqual, 0)
		})

		Convey("a negative deposit is a validation error", func() {
			w := api.do("POST", partyPath(child, "/deposit"), token, map[string]interface{}{"amount": "-5"})
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
			So(decode(w)["fields"], ShouldResemble, []interface{}{"amount"})
		})

		Convey("a deposit finer than the money precision is rejected, not truncated", func() {
			for _, amount := range []string{"10.559", "0.004"} {
				w := api.do("POST", partyPath(child, "/deposit"), token, map[string]interface{}{"amount": amount})
				So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
				So(decode(w)["fields"], ShouldResemble, []interface{}{"amount"})
			}
			w := api.do("GET", partyPath(child, ""), token, nil)
			So(decode(w)["wallet_amount"], ShouldEqual, "0.00")
		})
	})
}

func TestRateRoutes(t *testing.T) {
	Convey("Given a party", t, func() {
		api := setupAPI()
		token := api.login("root", "admin-pass", true)
		w := api.do("POST", "/api/v1/parties", token, partyBody("01"))
		So(w.Code, ShouldEqual, http.StatusCreated)
		party := decode(w)

		rate := map[string]interface{}{
			"market_id":   "kalyan",
			"commission":  map[string]interface{}{"admin": "1", "super": "2", "master": "3", "client": "4"},
			"partnership": map[string]interface{}{"admin": "10", "super": "20", "master": "30", "client": "40"},
		}

		Convey("a rate can be set once per market", func() {
			So(api.do("POST", partyPath(party, "/rates"), token, rate).Code, ShouldEqual, http.StatusCreated)
			So(api.do("POST", partyPath(party, "/rates"), token, rate).Code, ShouldEqual, http.StatusConflict)

			w := api.do("GET", partyPath(party, "/rates/kalyan"), token, nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["role"], ShouldEqual, "master")

			Convey("and deleted", func() {
				So(api.do("DELETE", partyPath(party, "/rates/kalyan"), token, nil).Code, ShouldEqual, http.StatusOK)
				So(api.do("GET", partyPath(party, "/rates/kalyan"), token, nil).Code, ShouldEqual, http.StatusNotFound)
			})
		})

		Convey("a percentage above 100 is rejected", func() {
			rate["commission"] = map[string]interface{}{"admin": "101", "super": "0", "master": "0", "client": "0"}
			w := api.do("POST", partyPath(party, "/rates"), token, rate)
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
		})
	})
}

func TestSettlementRoutes(t *testing.T) {
	Convey("Given an admin token", t, func() {
		api := setupAPI()
		token := api.login("root", "admin-pass", true)

		Convey("a day can be settled and inspected", func() {
			w := api.do("POST", "/api/v1/settlement/run", token, map[string]interface{}{"day": "2024-03-10"})
			So(w.Code, ShouldEqual, http.StatusOK)
			So(decode(w)["state"], ShouldEqual, "COMPLETED")

			w = api.do("GET", "/api/v1/settlement/runs/2024-03-10", token, nil)
			So(w.Code, ShouldEqual, http.StatusOK)
			run := decode(w)
			So(run["day"], ShouldEqual, "2024-03-10")
			So(len(run["steps"].([]interface{})), ShouldEqual, len(model.Steps))
		})

		Convey("a single step can be re-run", func() {
			w := api.do("POST", "/api/v1/settlement/run", token, map[string]interface{}{"day": "2024-03-10", "step": "global_snapshot"})
			So(w.Code, ShouldEqual, http.StatusOK)
			outcome := decode(w)
			So(outcome["step"], ShouldEqual, "global_snapshot")
			So(outcome["status"], ShouldEqual, "succeeded")
		})

		Convey("an unknown step or a malformed day is rejected", func() {
			So(api.do("POST", "/api/v1/settlement/run", token, map[string]interface{}{"step": "nope"}).Code, ShouldEqual, http.StatusUnprocessableEntity)
			So(api.do("POST", "/api/v1/settlement/run", token, map[string]interface{}{"day": "10/03/2024"}).Code, ShouldEqual, http.StatusUnprocessableEntity)
		})

		Convey("a backfill with from after to is rejected", func() {
			w := api.do("POST", "/api/v1/settlement/backfill", token, map[string]interface{}{"from": "2024-03-10", "to": "2024-03-08"})
			So(w.Code, ShouldEqual, http.StatusUnprocessableEntity)
		})

		Convey("an unknown run is not found", func() {
			So(api.do("GET", "/api/v1/settlement/runs/2001-01-01", token, nil).Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("parties cannot trigger settlement", func() {
			So(api.do("POST", "/api/v1/parties", token, partyBody("01")).Code, ShouldEqual, http.StatusCreated)
			partyToken := api.login("party01", "secret", false)
			w := api.do("POST", "/api/v1/settlement/run", partyToken, map[string]interface{}{"day": "2024-03-10"})
			So(w.Code, ShouldEqual, http.StatusForbidden)
		})
	})
}
