package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/felipeimp22/persona-finances/internal/core"
)

// memStore is an in-memory implementation of all the store interfaces,
// enough to exercise the engine logic without SQLite.
type memStore struct {
	mu        sync.Mutex
	fixed     map[string]core.FixedBill
	oneTime   map[string]core.OneTimeBill
	payments  map[string]core.Payment
	instances map[string]core.BillInstance
	income    map[string]core.Income
	expenses  map[string]core.Expense
	warnings  []core.BudgetWarning
}

func newMemStore() *memStore {
	return &memStore{
		fixed:     make(map[string]core.FixedBill),
		oneTime:   make(map[string]core.OneTimeBill),
		payments:  make(map[string]core.Payment),
		instances: make(map[string]core.BillInstance),
		income:    make(map[string]core.Income),
		expenses:  make(map[string]core.Expense),
	}
}

func (m *memStore) CreateFixedBill(_ context.Context, b core.FixedBill) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fixed[b.ID] = b
	return nil
}

func (m *memStore) GetFixedBill(_ context.Context, id string) (core.FixedBill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.fixed[id]
	if !ok {
		return core.FixedBill{}, core.ErrNotFound
	}
	return b, nil
}

func (m *memStore) ListFixedBills(_ context.Context, activeOnly bool) ([]core.FixedBill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.FixedBill
	for _, b := range m.fixed {
		if activeOnly && !b.IsActive {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDay < out[j].DueDay })
	return out, nil
}

func (m *memStore) UpdateFixedBill(_ context.Context, b core.FixedBill) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.fixed[b.ID]; !ok {
		return core.ErrNotFound
	}
	m.fixed[b.ID] = b
	return nil
}

func (m *memStore) DeleteFixedBill(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.fixed[id]; !ok {
		return core.ErrNotFound
	}
	delete(m.fixed, id)
	return nil
}

func (m *memStore) CreateOneTimeBill(_ context.Context, b core.OneTimeBill, inst core.BillInstance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.oneTime[b.ID] = b
	m.instances[inst.ID] = inst
	return nil
}

func (m *memStore) GetOneTimeBill(_ context.Context, id string) (core.OneTimeBill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.oneTime[id]
	if !ok {
		return core.OneTimeBill{}, core.ErrNotFound
	}
	return b, nil
}

func (m *memStore) ListOneTimeBills(_ context.Context, status core.BillStatus) ([]core.OneTimeBill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.OneTimeBill
	for _, b := range m.oneTime {
		if status != "" && b.Status != status {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (m *memStore) ListOneTimeBillsDueBetween(_ context.Context, from, to time.Time, excludePaid bool) ([]core.OneTimeBill, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.OneTimeBill
	for _, b := range m.oneTime {
		if b.DueDate.Before(from) || b.DueDate.After(to) {
			continue
		}
		if excludePaid && b.Status == core.BillPaid {
			continue
		}
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (m *memStore) UpdateOneTimeBill(_ context.Context, b core.OneTimeBill) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.oneTime[b.ID]; !ok {
		return core.ErrNotFound
	}
	m.oneTime[b.ID] = b
	return nil
}

func (m *memStore) DeleteOneTimeBill(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.oneTime[id]; !ok {
		return core.ErrNotFound
	}
	delete(m.oneTime, id)
	for pid, p := range m.payments {
		if p.BillID == id {
			delete(m.payments, pid)
		}
	}
	return nil
}

func (m *memStore) AddPayment(_ context.Context, p core.Payment, bill core.OneTimeBill) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[p.ID] = p
	m.oneTime[bill.ID] = bill
	return nil
}

func (m *memStore) GetPayment(_ context.Context, id string) (core.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return core.Payment{}, core.ErrNotFound
	}
	return p, nil
}

func (m *memStore) ListPayments(_ context.Context, billID string) ([]core.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Payment
	for _, p := range m.payments {
		if p.BillID == billID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (m *memStore) DeletePayment(_ context.Context, paymentID string, bill core.OneTimeBill) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.payments[paymentID]; !ok {
		return core.ErrNotFound
	}
	delete(m.payments, paymentID)
	m.oneTime[bill.ID] = bill
	return nil
}

func (m *memStore) InsertInstancesIfAbsent(_ context.Context, month core.MonthKey, instances []core.BillInstance) (int, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, inst := range m.instances {
		if inst.Month.Equal(month.Time) {
			return 0, true, nil
		}
	}
	for _, inst := range instances {
		m.instances[inst.ID] = inst
	}
	return len(instances), false, nil
}

func (m *memStore) GetInstance(_ context.Context, id string) (core.BillInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instances[id]
	if !ok {
		return core.BillInstance{}, core.ErrNotFound
	}
	return inst, nil
}

func (m *memStore) ListInstancesForMonth(_ context.Context, month core.MonthKey) ([]core.BillInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.BillInstance
	for _, inst := range m.instances {
		if inst.Month.Equal(month.Time) {
			out = append(out, inst)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (m *memStore) ListInstancesBefore(_ context.Context, month core.MonthKey, statuses []core.InstanceStatus) ([]core.BillInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	want := make(map[core.InstanceStatus]bool, len(statuses))
	for _, st := range statuses {
		want[st] = true
	}
	var out []core.BillInstance
	for _, inst := range m.instances {
		if !inst.Month.Before(month.Time) {
			continue
		}
		if len(want) > 0 && !want[inst.Status] {
			continue
		}
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func (m *memStore) ListOverdueInstances(_ context.Context) ([]core.BillInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.BillInstance
	for _, inst := range m.instances {
		if inst.Status == core.InstanceOverdue || inst.IsOverdue {
			out = append(out, inst)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DaysOverdue > out[j].DaysOverdue })
	return out, nil
}

func (m *memStore) SaveInstancePayment(_ context.Context, inst core.BillInstance, parent *core.OneTimeBill) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.instances[inst.ID]; !ok {
		return core.ErrNotFound
	}
	m.instances[inst.ID] = inst
	if parent != nil {
		m.oneTime[parent.ID] = *parent
	}
	return nil
}

func (m *memStore) MarkInstanceOverdue(_ context.Context, id string, daysOverdue int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst, ok := m.instances[id]
	if !ok {
		return core.ErrNotFound
	}
	inst.Status = core.InstanceOverdue
	inst.IsOverdue = true
	inst.DaysOverdue = daysOverdue
	m.instances[id] = inst
	return nil
}

func (m *memStore) DeleteInstance(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.instances[id]; !ok {
		return core.ErrNotFound
	}
	delete(m.instances, id)
	return nil
}

func (m *memStore) CreateIncome(_ context.Context, i core.Income) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.income[i.ID] = i
	return nil
}

func (m *memStore) GetIncome(_ context.Context, id string) (core.Income, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	i, ok := m.income[id]
	if !ok {
		return core.Income{}, core.ErrNotFound
	}
	return i, nil
}

func (m *memStore) ListIncome(_ context.Context, person core.Person, month *core.MonthKey) ([]core.Income, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Income
	for _, i := range m.income {
		if person != "" && i.Person != person {
			continue
		}
		if month != nil && !i.Month.Equal(month.Time) {
			continue
		}
		out = append(out, i)
	}
	return out, nil
}

func (m *memStore) UpdateIncome(_ context.Context, i core.Income) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.income[i.ID]; !ok {
		return core.ErrNotFound
	}
	m.income[i.ID] = i
	return nil
}

func (m *memStore) DeleteIncome(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.income[id]; !ok {
		return core.ErrNotFound
	}
	delete(m.income, id)
	return nil
}

func (m *memStore) CreateExpense(_ context.Context, e core.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expenses[e.ID] = e
	return nil
}

func (m *memStore) GetExpense(_ context.Context, id string) (core.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.expenses[id]
	if !ok {
		return core.Expense{}, core.ErrNotFound
	}
	return e, nil
}

func (m *memStore) ListExpensesBetween(_ context.Context, from, to time.Time) ([]core.Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.Expense
	for _, e := range m.expenses {
		if e.Date.Before(from) || e.Date.After(to) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *memStore) UpdateExpense(_ context.Context, e core.Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.expenses[e.ID]; !ok {
		return core.ErrNotFound
	}
	m.expenses[e.ID] = e
	return nil
}

func (m *memStore) DeleteExpense(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.expenses[id]; !ok {
		return core.ErrNotFound
	}
	delete(m.expenses, id)
	return nil
}

func (m *memStore) ListActiveBudgetWarnings(_ context.Context) ([]core.BudgetWarning, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []core.BudgetWarning
	for _, w := range m.warnings {
		if w.IsActive {
			out = append(out, w)
		}
	}
	return out, nil
}

// fakePublisher records published scopes.
type fakePublisher struct {
	mu     sync.Mutex
	scopes []string
}

func (p *fakePublisher) PublishLedgerChanged(_ context.Context, scope string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.scopes = append(p.scopes, scope)
	return nil
}

func (p *fakePublisher) published(scope string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, s := range p.scopes {
		if s == scope {
			n++
		}
	}
	return n
}

// fixedClock returns a Clock pinned to an instant.
func fixedClock(t time.Time) Clock {
	return func() time.Time { return t }
}

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}
