package service

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/viper"
	"gitlab.com/kuberbook/settlement_api/config"
	"gitlab.com/kuberbook/settlement_api/conv"
	"gitlab.com/kuberbook/settlement_api/model"
	"gitlab.com/kuberbook/settlement_api/queries/memory"
)

var testNow = time.Date(2024, 3, 11, 0, 5, 0, 0, time.UTC)

func setupService() (*Service, *memory.Store) {
	v := viper.New()
	config.SetDefaultVariables(v)
	v.Set("server.api.jwt_token_secret", "access-secret")
	v.Set("server.api.jwt_refresh_secret", "refresh-secret")
	cfg := config.LoadConfig(v)

	store := memory.New()
	store.SetClock(func() time.Time { return testNow })
	service, err := Init(cfg, store)
	if err != nil {
		panic(err)
	}
	service.SetClock(func() time.Time { return testNow })
	return service, store
}

func profile(n int) model.PartyProfile {
	return model.PartyProfile{
		Name:     fmt.Sprintf("Party %d", n),
		Username: fmt.Sprintf("party%d", n),
		Mobile:   fmt.Sprintf("98765432%02d", n),
		Password: "secret",
	}
}

func mustCreate(service *Service, parent model.ParentRef, role model.PartyRole, n int) *model.Party {
	party, err := service.CreateParty(context.Background(), parent, role, profile(n))
	if err != nil {
		panic(err)
	}
	return party
}

func mustAmount(v string) model.Amount {
	d, err := conv.ParseAmount(v)
	if err != nil {
		panic(err)
	}
	return model.NewAmount(d)
}
