// Package memory is an in-memory implementation of the storage ports. It is safe for
// concurrent use and is intended for tests and local development.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ericlagergren/decimal"
	"github.com/lib/pq"
	"gitlab.com/kuberbook/settlement_api/conv"
	"gitlab.com/kuberbook/settlement_api/model"
	"gitlab.com/kuberbook/settlement_api/queries"
)

// Store keeps every record in maps guarded by a single lock
type Store struct {
	mu  sync.RWMutex
	now func() time.Time

	// one sequence per table, like the BIGSERIAL columns
	sequences map[string]uint64

	admins       map[uint64]model.Admin
	parties      map[uint64]model.Party
	rates        map[rateKey]model.RateContract
	transactions []model.TransactionEntry
	wagers       []model.WagerEntry
	globals      map[string]model.GlobalSnapshot
	accounts     map[accountKey]model.AccountSnapshot
	markets      map[string]model.Market
	timings      []model.MarketTiming
	results      []model.MarketResult
	runs         map[string]model.SettlementRun

	failures map[string]*failure
}

type rateKey struct {
	partyID  uint64
	marketID string
}

type accountKey struct {
	userID uint64
	day    string
}

type failure struct {
	remaining int
	err       error
}

var _ queries.Store = (*Store)(nil)

// New creates an empty store
func New() *Store {
	return &Store{
		now:       time.Now,
		sequences: make(map[string]uint64),
		admins:    make(map[uint64]model.Admin),
		parties:   make(map[uint64]model.Party),
		rates:     make(map[rateKey]model.RateContract),
		globals:   make(map[string]model.GlobalSnapshot),
		accounts:  make(map[accountKey]model.AccountSnapshot),
		markets:   make(map[string]model.Market),
		runs:      make(map[string]model.SettlementRun),
		failures:  make(map[string]*failure),
	}
}

// SetClock replaces the time source used for created_at columns
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

// FailNext makes the next `times` calls of the named method return err. A negative count fails forever.
func (s *Store) FailNext(method string, times int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = &failure{remaining: times, err: err}
}

func (s *Store) failLocked(method string) error {
	f, ok := s.failures[method]
	if !ok || f.remaining == 0 {
		return nil
	}
	if f.remaining > 0 {
		f.remaining--
	}
	return model.NewInternalError(f.err, "%s failed", method)
}

// nextLocked advances the named sequence, values are never handed out twice
func (s *Store) nextLocked(sequence string) uint64 {
	s.sequences[sequence]++
	return s.sequences[sequence]
}

// Seeding helpers -------------------------------------------------------------

// AddAdmin stores a root admin, assigning an id when none is set
func (s *Store) AddAdmin(admin model.Admin) model.Admin {
	s.mu.Lock()
	defer s.mu.Unlock()
	if admin.ID == 0 {
		admin.ID = s.nextLocked("admins")
	}
	admin.CreatedAt = s.now()
	s.admins[admin.ID] = admin
	return admin
}

// AddTransaction appends to the transaction log
func (s *Store) AddTransaction(entry model.TransactionEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ID = uint64(len(s.transactions) + 1)
	s.transactions = append(s.transactions, entry)
}

// AddWager appends to the wager log
func (s *Store) AddWager(entry model.WagerEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ID = uint64(len(s.wagers) + 1)
	s.wagers = append(s.wagers, entry)
}

func (s *Store) AddMarket(market model.Market) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markets[market.ID] = cloneMarket(market)
}

func (s *Store) AddTiming(timing model.MarketTiming) {
	s.mu.Lock()
	defer s.mu.Unlock()
	timing.ID = uint64(len(s.timings) + 1)
	s.timings = append(s.timings, timing)
}

func (s *Store) AddResult(result model.MarketResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	result.ID = uint64(len(s.results) + 1)
	s.results = append(s.results, result)
}

// GetMarket returns a copy of a market for inspection
func (s *Store) GetMarket(id string) (model.Market, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.markets[id]
	return cloneMarket(m), ok
}

// Transactions returns a copy of the transaction log
func (s *Store) Transactions() []model.TransactionEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.TransactionEntry, len(s.transactions))
	copy(out, s.transactions)
	return out
}

// PartyStore implementation ---------------------------------------------------

func (s *Store) GetAdmin(_ context.Context, id uint64) (*model.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	admin, ok := s.admins[id]
	if !ok {
		return nil, model.NewNotFoundError("admin not found")
	}
	return &admin, nil
}

func (s *Store) GetAdminByUsername(_ context.Context, username string) (*model.Admin, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, admin := range s.admins {
		if admin.Username == username {
			return &admin, nil
		}
	}
	return nil, model.NewNotFoundError("admin not found")
}

func (s *Store) GetParty(_ context.Context, id uint64) (*model.Party, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failLocked("GetParty"); err != nil {
		return nil, err
	}
	party, ok := s.parties[id]
	if !ok {
		return nil, model.NewNotFoundError("party not found")
	}
	party = cloneParty(party)
	return &party, nil
}

func (s *Store) GetPartyWithParent(_ context.Context, id uint64) (*model.PartyWithParent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	party, ok := s.parties[id]
	if !ok {
		return nil, model.NewNotFoundError("party not found")
	}
	return &model.PartyWithParent{Party: cloneParty(party), ParentName: s.parentNameLocked(party)}, nil
}

func (s *Store) parentNameLocked(party model.Party) string {
	switch party.JoinedByType {
	case model.JoinedByAdmin:
		return s.admins[party.JoinedBy].Name
	case model.JoinedByParty:
		return s.parties[party.JoinedBy].Name
	}
	return ""
}

func (s *Store) GetPartyByUsername(_ context.Context, username string) (*model.Party, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, party := range s.parties {
		if party.Username == username {
			party = cloneParty(party)
			return &party, nil
		}
	}
	return nil, model.NewNotFoundError("party not found")
}

func (s *Store) FindDuplicateParty(_ context.Context, username, mobile string, excludeID uint64) (*model.Party, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if dup := s.duplicateLocked(username, mobile, excludeID); dup != nil {
		party := cloneParty(*dup)
		return &party, nil
	}
	return nil, nil
}

func (s *Store) duplicateLocked(username, mobile string, excludeID uint64) *model.Party {
	for _, id := range s.sortedPartyIDsLocked() {
		party := s.parties[id]
		if id == excludeID {
			continue
		}
		if party.Username == username || party.Mobile == mobile {
			return &party
		}
	}
	return nil
}

func (s *Store) NextSrNo(_ context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failLocked("NextSrNo"); err != nil {
		return 0, err
	}
	return s.nextLocked("parties_sr_no"), nil
}

// CreateParty enforces the unique username, mobile and sr_no columns like the database does
func (s *Store) CreateParty(_ context.Context, party *model.Party) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failLocked("CreateParty"); err != nil {
		return err
	}
	if s.duplicateLocked(party.Username, party.Mobile, 0) != nil {
		return model.NewConflictError("party already exists")
	}
	for _, other := range s.parties {
		if other.SrNo == party.SrNo {
			return model.NewConflictError("party already exists")
		}
	}
	party.ID = s.nextLocked("parties")
	party.CreatedAt = s.now()
	party.UpdatedAt = party.CreatedAt
	s.parties[party.ID] = cloneParty(*party)
	return nil
}

// UpdateParty checks everything before touching a record so a failure leaves the store unchanged
func (s *Store) UpdateParty(_ context.Context, id uint64, fields map[string]interface{}, move *model.PartyMove) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failLocked("UpdateParty"); err != nil {
		return err
	}
	party, ok := s.parties[id]
	if !ok {
		return model.NewNotFoundError("party not found")
	}
	for column, value := range fields {
		switch column {
		case "name":
			party.Name = value.(string)
		case "username":
			party.Username = value.(string)
		case "mobile":
			party.Mobile = value.(string)
		case "password":
			party.Password = value.(string)
		default:
			return model.NewInternalError(nil, "unknown party column %s", column)
		}
	}
	if s.duplicateLocked(party.Username, party.Mobile, id) != nil {
		return model.NewConflictError("party already exists")
	}
	if move != nil {
		for partyID := range move.Uplines {
			if _, ok := s.parties[partyID]; !ok {
				return model.NewNotFoundError("party not found")
			}
		}
		party.JoinedBy = move.Parent.ID
		party.JoinedByType = move.Parent.Type
	}

	party.UpdatedAt = s.now()
	s.parties[id] = party
	if move != nil {
		for partyID, chain := range move.Uplines {
			p := s.parties[partyID]
			p.Uplines = append(pq.Int64Array{}, chain...)
			s.parties[partyID] = p
		}
	}
	return nil
}

func (s *Store) DeleteParty(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.parties[id]; !ok {
		return model.NewNotFoundError("party not found")
	}
	delete(s.parties, id)
	return nil
}

func (s *Store) ListChildren(_ context.Context, parentIDs []uint64) ([]model.Party, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failLocked("ListChildren"); err != nil {
		return nil, err
	}
	parents := make(map[uint64]bool, len(parentIDs))
	for _, id := range parentIDs {
		parents[id] = true
	}
	children := []model.Party{}
	for _, id := range s.sortedPartyIDsLocked() {
		party := s.parties[id]
		if party.JoinedByType == model.JoinedByParty && parents[party.JoinedBy] {
			children = append(children, cloneParty(party))
		}
	}
	return children, nil
}

func (s *Store) SetStatus(_ context.Context, ids []uint64, field model.StatusField, value bool) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var affected int64
	for _, id := range ids {
		party, ok := s.parties[id]
		if !ok {
			continue
		}
		switch field {
		case model.StatusFieldBlocked:
			party.IsBlocked = value
		case model.StatusFieldBetLock:
			party.IsBetLock = value
		default:
			return affected, model.NewValidationError("unknown status field", "field")
		}
		s.parties[id] = party
		affected++
	}
	return affected, nil
}

func (s *Store) ListParties(_ context.Context, filter model.PartyFilter, page, limit int) ([]model.PartyWithParent, int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	matched := []model.PartyWithParent{}
	for _, id := range s.sortedPartyIDsLocked() {
		party := s.parties[id]
		if search != "" &&
			!strings.Contains(strings.ToLower(party.Name), search) &&
			!strings.Contains(strings.ToLower(party.Username), search) &&
			!strings.Contains(strings.ToLower(party.Mobile), search) {
			continue
		}
		if filter.Parent != nil && party.Parent() != *filter.Parent {
			continue
		}
		if filter.Role != "" && party.Role != filter.Role {
			continue
		}
		matched = append(matched, model.PartyWithParent{Party: cloneParty(party), ParentName: s.parentNameLocked(party)})
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].SrNo < matched[j].SrNo })

	count := int64(len(matched))
	start := (page - 1) * limit
	if start < 0 {
		start = 0
	}
	if start >= len(matched) {
		return []model.PartyWithParent{}, count, nil
	}
	end := start + limit
	if limit <= 0 || end > len(matched) {
		end = len(matched)
	}
	return matched[start:end], count, nil
}

func (s *Store) sortedPartyIDsLocked() []uint64 {
	ids := make([]uint64, 0, len(s.parties))
	for id := range s.parties {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// WalletStore implementation --------------------------------------------------

func (s *Store) IncrementWallet(_ context.Context, id uint64, amount *decimal.Big, entry *model.TransactionEntry) (*decimal.Big, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failLocked("IncrementWallet"); err != nil {
		return nil, err
	}
	party, ok := s.parties[id]
	if !ok {
		return nil, model.NewNotFoundError("party not found")
	}
	party.WalletAmount = model.NewAmount(conv.Sum(party.WalletAmount.Big(), amount))
	s.parties[id] = party
	if entry != nil {
		entry.ID = uint64(len(s.transactions) + 1)
		if entry.CreatedAt.IsZero() {
			entry.CreatedAt = s.now()
		}
		s.transactions = append(s.transactions, *entry)
	}
	return party.WalletAmount.Big(), nil
}

func (s *Store) ListWallets(_ context.Context) ([]model.PartyWallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failLocked("ListWallets"); err != nil {
		return nil, err
	}
	wallets := make([]model.PartyWallet, 0, len(s.parties))
	for _, id := range s.sortedPartyIDsLocked() {
		wallets = append(wallets, model.PartyWallet{ID: id, WalletAmount: model.NewAmount(s.parties[id].WalletAmount.Big())})
	}
	return wallets, nil
}

func (s *Store) SumActiveWallets(_ context.Context) (*decimal.Big, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failLocked("SumActiveWallets"); err != nil {
		return nil, err
	}
	values := []*decimal.Big{}
	for _, party := range s.parties {
		if !party.IsBlocked {
			values = append(values, party.WalletAmount.Big())
		}
	}
	return conv.Sum(values...), nil
}

// RateStore implementation ----------------------------------------------------

func (s *Store) GetRate(_ context.Context, partyID uint64, marketID string) (*model.RateContract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rate, ok := s.rates[rateKey{partyID, marketID}]
	if !ok {
		return nil, model.NewNotFoundError("rate contract not found")
	}
	return &rate, nil
}

func (s *Store) CreateRate(_ context.Context, rate *model.RateContract) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := rateKey{rate.PartyID, rate.MarketID}
	if _, exists := s.rates[key]; exists {
		return model.NewConflictError("rate contract already exists")
	}
	rate.ID = s.nextLocked("rate_contracts")
	rate.CreatedAt = s.now()
	s.rates[key] = *rate
	return nil
}

func (s *Store) DeleteRate(_ context.Context, partyID uint64, marketID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := rateKey{partyID, marketID}
	if _, ok := s.rates[key]; !ok {
		return model.NewNotFoundError("rate contract not found")
	}
	delete(s.rates, key)
	return nil
}

func (s *Store) ListRates(_ context.Context, partyID uint64) ([]model.RateContract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rates := []model.RateContract{}
	for key, rate := range s.rates {
		if key.partyID == partyID {
			rates = append(rates, rate)
		}
	}
	sort.Slice(rates, func(i, j int) bool { return rates[i].MarketID < rates[j].MarketID })
	return rates, nil
}

// LedgerStore implementation --------------------------------------------------

type bucketKey struct {
	userID     uint64
	kind       model.TransactionType
	addedBy    uint64
	paymentFor string
}

func (s *Store) SumTransactions(_ context.Context, window model.Window) ([]model.TransactionBucket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failLocked("SumTransactions"); err != nil {
		return nil, err
	}
	sums := map[bucketKey]*decimal.Big{}
	keys := []bucketKey{}
	for _, entry := range s.transactions {
		if !window.Contains(entry.CreatedAt) {
			continue
		}
		key := bucketKey{entry.UserID, entry.Type, entry.AddedBy, entry.PaymentFor}
		if _, ok := sums[key]; !ok {
			keys = append(keys, key)
		}
		sums[key] = conv.Sum(sums[key], entry.Amount.Big())
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if a.userID != b.userID {
			return a.userID < b.userID
		}
		if a.kind != b.kind {
			return a.kind < b.kind
		}
		if a.addedBy != b.addedBy {
			return a.addedBy < b.addedBy
		}
		return a.paymentFor < b.paymentFor
	})
	buckets := make([]model.TransactionBucket, 0, len(keys))
	for _, key := range keys {
		buckets = append(buckets, model.TransactionBucket{
			UserID:     key.userID,
			Type:       key.kind,
			AddedBy:    key.addedBy,
			PaymentFor: key.paymentFor,
			Total:      model.NewAmount(sums[key]),
		})
	}
	return buckets, nil
}

func (s *Store) SumWagers(_ context.Context, window model.Window) ([]model.WagerTotals, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failLocked("SumWagers"); err != nil {
		return nil, err
	}
	staked := map[uint64]*decimal.Big{}
	won := map[uint64]*decimal.Big{}
	users := []uint64{}
	for _, entry := range s.wagers {
		if !window.Contains(entry.CreatedAt) {
			continue
		}
		if _, ok := staked[entry.UserID]; !ok {
			users = append(users, entry.UserID)
		}
		staked[entry.UserID] = conv.Sum(staked[entry.UserID], entry.Amount.Big())
		won[entry.UserID] = conv.Sum(won[entry.UserID], entry.WinAmount.Big())
	}
	sort.Slice(users, func(i, j int) bool { return users[i] < users[j] })
	totals := make([]model.WagerTotals, 0, len(users))
	for _, id := range users {
		totals = append(totals, model.WagerTotals{UserID: id, Staked: model.NewAmount(staked[id]), Won: model.NewAmount(won[id])})
	}
	return totals, nil
}

// SnapshotStore implementation ------------------------------------------------

func (s *Store) SaveGlobalSnapshot(_ context.Context, snapshot *model.GlobalSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failLocked("SaveGlobalSnapshot"); err != nil {
		return err
	}
	if existing, ok := s.globals[snapshot.Day]; ok {
		snapshot.CreatedAt = existing.CreatedAt
	} else {
		snapshot.CreatedAt = s.now()
	}
	s.globals[snapshot.Day] = *snapshot
	return nil
}

func (s *Store) GetGlobalSnapshot(_ context.Context, day string) (*model.GlobalSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshot, ok := s.globals[day]
	if !ok {
		return nil, model.NewNotFoundError("global snapshot not found")
	}
	return &snapshot, nil
}

func (s *Store) SaveAccountSnapshots(_ context.Context, snapshots []model.AccountSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failLocked("SaveAccountSnapshots"); err != nil {
		return err
	}
	for _, snapshot := range snapshots {
		key := accountKey{snapshot.UserID, snapshot.Day}
		if existing, ok := s.accounts[key]; ok {
			snapshot.CreatedAt = existing.CreatedAt
		} else {
			snapshot.CreatedAt = s.now()
		}
		s.accounts[key] = snapshot
	}
	return nil
}

func (s *Store) ListAccountSnapshots(_ context.Context, day string) ([]model.AccountSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snapshots := []model.AccountSnapshot{}
	for key, snapshot := range s.accounts {
		if key.day == day {
			snapshots = append(snapshots, snapshot)
		}
	}
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].UserID < snapshots[j].UserID })
	return snapshots, nil
}

// MarketStore implementation --------------------------------------------------

func (s *Store) ListMarkets(_ context.Context) ([]model.Market, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failLocked("ListMarkets"); err != nil {
		return nil, err
	}
	markets := make([]model.Market, 0, len(s.markets))
	for _, market := range s.markets {
		markets = append(markets, cloneMarket(market))
	}
	sort.Slice(markets, func(i, j int) bool { return markets[i].ID < markets[j].ID })
	return markets, nil
}

func (s *Store) ListTimings(_ context.Context, weekday int) ([]model.MarketTiming, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failLocked("ListTimings"); err != nil {
		return nil, err
	}
	timings := []model.MarketTiming{}
	for _, timing := range s.timings {
		if timing.Weekday == weekday {
			timings = append(timings, timing)
		}
	}
	sort.SliceStable(timings, func(i, j int) bool { return timings[i].MarketID < timings[j].MarketID })
	return timings, nil
}

func (s *Store) LatestResults(_ context.Context) ([]model.MarketResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failLocked("LatestResults"); err != nil {
		return nil, err
	}
	latest := map[string]model.MarketResult{}
	for _, result := range s.results {
		current, ok := latest[result.MarketID]
		if !ok || result.ResultDate > current.ResultDate ||
			(result.ResultDate == current.ResultDate && result.ID > current.ID) {
			latest[result.MarketID] = result
		}
	}
	results := make([]model.MarketResult, 0, len(latest))
	for _, result := range latest {
		results = append(results, result)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].MarketID < results[j].MarketID })
	return results, nil
}

func (s *Store) UpdateMarket(_ context.Context, id string, fields map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failLocked("UpdateMarket"); err != nil {
		return err
	}
	market, ok := s.markets[id]
	if !ok {
		return model.NewNotFoundError("market %s not found", id)
	}
	for column, value := range fields {
		if err := setMarketColumn(&market, column, value); err != nil {
			return err
		}
	}
	s.markets[id] = market
	return nil
}

func setMarketColumn(market *model.Market, column string, value interface{}) error {
	switch column {
	case "is_active":
		market.IsActive = value.(bool)
	case "open_time":
		market.OpenTime = value.(string)
	case "close_time":
		market.CloseTime = value.(string)
	case "timing_date":
		market.TimingDate = value.(string)
	case "open_number":
		market.OpenNumber = stringPtr(value)
	case "close_number":
		market.CloseNumber = stringPtr(value)
	case "result_number":
		market.ResultNumber = stringPtr(value)
	case "guess_open":
		market.GuessOpen = stringPtr(value)
	case "guess_close":
		market.GuessClose = stringPtr(value)
	case "guess_date":
		market.GuessDate = stringPtr(value)
	case "last_open_number":
		market.LastOpenNumber = stringPtr(value)
	case "last_close_number":
		market.LastCloseNumber = stringPtr(value)
	case "last_result_number":
		market.LastResultNumber = stringPtr(value)
	case "last_result_date":
		market.LastResultDate = stringPtr(value)
	default:
		return model.NewInternalError(nil, "unknown market column %s", column)
	}
	return nil
}

// RunStore implementation -----------------------------------------------------

func (s *Store) SaveRun(_ context.Context, run *model.SettlementRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failLocked("SaveRun"); err != nil {
		return err
	}
	stored := *run
	stored.FailedSteps = append(pq.StringArray{}, run.FailedSteps...)
	s.runs[run.Day] = stored
	return nil
}

func (s *Store) GetRun(_ context.Context, day string) (*model.SettlementRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[day]
	if !ok {
		return nil, model.NewNotFoundError("settlement run %s not found", day)
	}
	return &run, nil
}

// helpers ---------------------------------------------------------------------

func cloneParty(p model.Party) model.Party {
	p.Uplines = append(pq.Int64Array{}, p.Uplines...)
	p.WalletAmount = model.NewAmount(p.WalletAmount.Big())
	return p
}

func cloneMarket(m model.Market) model.Market {
	m.OpenNumber = cloneString(m.OpenNumber)
	m.CloseNumber = cloneString(m.CloseNumber)
	m.ResultNumber = cloneString(m.ResultNumber)
	m.GuessOpen = cloneString(m.GuessOpen)
	m.GuessClose = cloneString(m.GuessClose)
	m.GuessDate = cloneString(m.GuessDate)
	m.LastOpenNumber = cloneString(m.LastOpenNumber)
	m.LastCloseNumber = cloneString(m.LastCloseNumber)
	m.LastResultNumber = cloneString(m.LastResultNumber)
	m.LastResultDate = cloneString(m.LastResultDate)
	return m
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

func stringPtr(value interface{}) *string {
	switch v := value.(type) {
	case nil:
		return nil
	case *string:
		return cloneString(v)
	case string:
		return &v
	}
	panic(fmt.Sprintf("memory: unsupported string column value %T", value))
}
