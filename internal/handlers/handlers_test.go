package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"example.com/budget-tracker/internal/auth"
	"example.com/budget-tracker/internal/budget"
	"example.com/budget-tracker/internal/models"
	"example.com/budget-tracker/internal/repository/memory"
)

type testValidator struct {
	v *validator.Validate
}

func (tv testValidator) Validate(i interface{}) error {
	return tv.v.Struct(i)
}

type fixture struct {
	e       *echo.Echo
	store   *memory.Store
	service *budget.Service
	userID  uuid.UUID
}

func newFixture() *fixture {
	e := echo.New()
	e.Validator = testValidator{v: validator.New()}

	store := memory.New()
	return &fixture{
		e:     e,
		store: store,
		service: budget.NewService(store, nil, budget.Options{
			DefaultWindow: 3,
			MaxWindow:     24,
		}),
		userID: uuid.New(),
	}
}

// call runs h as the fixture's user. pathParams alternate name, value.
func (f *fixture) call(h echo.HandlerFunc, method, target, body string, pathParams ...string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()

	c := f.e.NewContext(req, rec)
	if f.userID != uuid.Nil {
		c.Set(auth.ContextUserIDKey, f.userID)
	}
	var names, values []string
	for i := 0; i+1 < len(pathParams); i += 2 {
		names = append(names, pathParams[i])
		values = append(values, pathParams[i+1])
	}
	if len(names) > 0 {
		c.SetParamNames(names...)
		c.SetParamValues(values...)
	}

	if err := h(c); err != nil {
		f.e.HTTPErrorHandler(err, c)
	}
	return rec
}

func (f *fixture) budgetHandler() *BudgetHandler {
	h := NewBudgetHandler(f.service, f.store)
	h.now = func() time.Time { return time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC) }
	return h
}

func TestSummaryUsesStoredWindow(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.store.UpsertSettings(ctx, f.userID, 2); err != nil {
		t.Fatalf("settings: %v", err)
	}
	f.store.AddTransaction(models.Transaction{
		UserID:        f.userID,
		Date:          time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		Category:      "Coffee",
		SpendingGroup: "Day to Day",
		Amount:        decimal.RequireFromString("4.50"),
	})

	rec := f.call(f.budgetHandler().Summary, http.MethodGet, "/api/v1/budget", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var summary budget.GroupedSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if summary.WindowMonths != 2 {
		t.Fatalf("expected stored window 2, got %d", summary.WindowMonths)
	}
	if budget.MonthKey(summary.Month) != "2024-03" {
		t.Fatalf("expected current month, got %s", budget.MonthKey(summary.Month))
	}
	if !summary.Spent.Equal(decimal.RequireFromString("4.50")) {
		t.Fatalf("expected spent 4.50, got %s", summary.Spent)
	}
}

func TestSummaryReportsGroupProgress(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.store.CreateCategory(ctx, f.userID, "Groceries", "Day to Day", decimal.RequireFromString("200")); err != nil {
		t.Fatalf("create: %v", err)
	}
	f.store.AddTransaction(models.Transaction{
		UserID:        f.userID,
		Date:          time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
		Category:      "Groceries",
		SpendingGroup: "Day to Day",
		Amount:        decimal.RequireFromString("50"),
	})

	rec := f.call(f.budgetHandler().Summary, http.MethodGet, "/api/v1/budget?month=2024-03", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), `"progress_percent"`) {
		t.Fatalf("progress_percent missing from %s", rec.Body.String())
	}

	var summary budget.GroupedSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summary); err != nil {
		t.Fatalf("decode: %v", err)
	}
	group, ok := summary.Group("Day to Day")
	if !ok {
		t.Fatalf("Day to Day group missing: %+v", summary.Groups)
	}
	if !group.Progress.Equal(decimal.RequireFromString("25")) {
		t.Fatalf("expected 25%% progress, got %s", group.Progress)
	}
	recurring, ok := summary.Group("Recurring")
	if !ok || !recurring.IsDefault || !recurring.Progress.IsZero() {
		t.Fatalf("expected empty default Recurring group, got %+v", recurring)
	}
}

func TestSummaryRejectsBadQuery(t *testing.T) {
	f := newFixture()
	h := f.budgetHandler()

	for _, target := range []string{
		"/api/v1/budget?month=March",
		"/api/v1/budget?window=abc",
		"/api/v1/budget?window=0",
		"/api/v1/budget?window=25",
	} {
		if rec := f.call(h.Summary, http.MethodGet, target, ""); rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", target, rec.Code)
		}
	}
}

func TestSummaryRequiresUser(t *testing.T) {
	f := newFixture()
	f.userID = uuid.Nil

	if rec := f.call(f.budgetHandler().Summary, http.MethodGet, "/api/v1/budget", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestUpdateCategoryCreatesAndScopesToFuture(t *testing.T) {
	f := newFixture()
	h := f.budgetHandler()

	body := `{"month":"2024-03","amount":"120.50","scope":"future","spending_group":"Recurring"}`
	rec := f.call(h.UpdateCategory, http.MethodPut, "/api/v1/budget/categories/Gym", body, "category", "Gym")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp UpdateBudgetResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Outcome != budget.OutcomeApplied || !resp.Created || !resp.All {
		t.Fatalf("unexpected response %+v", resp)
	}
	if resp.Category.SpendingGroup != "Recurring" {
		t.Fatalf("expected group Recurring, got %s", resp.Category.SpendingGroup)
	}

	summary, err := f.service.GetMonthlySummary(context.Background(), f.userID, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), 3)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	gym, ok := summary.Category("Gym")
	if !ok || !gym.Budgeted.Equal(decimal.RequireFromString("120.5")) {
		t.Fatalf("expected June to inherit 120.50, got %+v", gym)
	}
}

func TestUpdateCategoryValidation(t *testing.T) {
	f := newFixture()
	h := f.budgetHandler()

	cases := map[string]string{
		"non-numeric amount": `{"month":"2024-03","amount":"ten"}`,
		"negative amount":    `{"month":"2024-03","amount":"-1"}`,
		"missing month":      `{"amount":"10"}`,
		"bad month":          `{"month":"03/2024","amount":"10"}`,
		"unknown scope":      `{"month":"2024-03","amount":"10","scope":"forever"}`,
		"malformed body":     `{"month":`,
	}
	for name, body := range cases {
		rec := f.call(h.UpdateCategory, http.MethodPut, "/", body, "category", "Gym")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("%s: expected 400, got %d", name, rec.Code)
		}
	}

	categories, err := f.store.ListCategories(context.Background(), f.userID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(categories) != 0 {
		t.Fatalf("rejected requests must not write, found %d categories", len(categories))
	}
}

func TestUpdateCategoryUnknownID(t *testing.T) {
	f := newFixture()
	id := uuid.NewString()

	rec := f.call(f.budgetHandler().UpdateCategory, http.MethodPut, "/", `{"month":"2024-03","amount":"10"}`, "category", id)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestBudgetErrorMapping(t *testing.T) {
	f := newFixture()

	cases := []struct {
		err     error
		status  int
		outcome string
	}{
		{budget.ErrNotAuthenticated, http.StatusUnauthorized, ""},
		{fmt.Errorf("%w: window", budget.ErrInvalidArgument), http.StatusBadRequest, ""},
		{budget.ErrCategoryNotFound, http.StatusNotFound, ""},
		{&budget.UpdateError{Outcome: budget.OutcomeCatalogOnly, Stage: budget.StageOverride, Err: errors.New("boom")}, http.StatusInternalServerError, "catalog_only"},
		{&budget.UpdateError{Outcome: budget.OutcomeNothingChanged, Stage: budget.StageCatalogDefault, Err: errors.New("boom")}, http.StatusInternalServerError, "nothing_changed"},
		{&budget.ReadError{Query: "transactions", Err: errors.New("boom")}, http.StatusServiceUnavailable, ""},
		{errors.New("boom"), http.StatusInternalServerError, ""},
	}

	for _, tc := range cases {
		rec := f.call(func(c echo.Context) error { return budgetError(c, tc.err) }, http.MethodGet, "/", "")
		if rec.Code != tc.status {
			t.Fatalf("%v: expected %d, got %d", tc.err, tc.status, rec.Code)
		}

		var resp errorResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if resp.Outcome != tc.outcome {
			t.Fatalf("%v: expected outcome %q, got %q", tc.err, tc.outcome, resp.Outcome)
		}
	}
}

func TestCategoryHistory(t *testing.T) {
	f := newFixture()
	for _, d := range []time.Time{
		time.Date(2024, 1, 10, 0, 0, 0, 0, time.UTC),
		time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
	} {
		f.store.AddTransaction(models.Transaction{
			UserID:        f.userID,
			Date:          d,
			Category:      "Fuel",
			SpendingGroup: "Day to Day",
			Amount:        decimal.RequireFromString("60"),
		})
	}

	rec := f.call(f.budgetHandler().CategoryHistory, http.MethodGet, "/?name=Fuel&month=2024-03&window=3", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var history budget.CategoryHistory
	if err := json.Unmarshal(rec.Body.Bytes(), &history); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(history.Totals) != 3 || !history.AverageSpend.Equal(decimal.RequireFromString("60")) {
		t.Fatalf("unexpected history %+v", history)
	}

	if rec := f.call(f.budgetHandler().CategoryHistory, http.MethodGet, "/?month=2024-03", ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without name, got %d", rec.Code)
	}
}

func TestExportCSV(t *testing.T) {
	f := newFixture()
	ctx := context.Background()

	if _, err := f.store.CreateCategory(ctx, f.userID, "Rent", "Recurring", decimal.RequireFromString("1500")); err != nil {
		t.Fatalf("create: %v", err)
	}

	rec := f.call(f.budgetHandler().ExportCSV, http.MethodGet, "/?month=2024-03", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if lines[0] != "group,category,kind,budgeted,spent,remaining,average,group_progress_percent" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if len(lines) != 2 || lines[1] != "Recurring,Rent,catalogued,1500.00,0.00,1500.00,0.00,0.00" {
		t.Fatalf("unexpected rows %q", lines[1:])
	}
	if !strings.Contains(rec.Header().Get(echo.HeaderContentDisposition), "budget-2024-03.csv") {
		t.Fatalf("unexpected disposition %q", rec.Header().Get(echo.HeaderContentDisposition))
	}
}

func TestSpendingGroups(t *testing.T) {
	f := newFixture()
	h := NewSpendingGroupHandler(f.store, f.service)

	rec := f.call(h.List, http.MethodGet, "/", "")
	var groups []models.SpendingGroup
	if err := json.Unmarshal(rec.Body.Bytes(), &groups); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(groups) != len(models.DefaultSpendingGroups) || !groups[0].IsDefault {
		t.Fatalf("expected seeded defaults, got %+v", groups)
	}

	if rec := f.call(h.Create, http.MethodPost, "/", `{"name":"Savings"}`); rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if rec := f.call(h.Create, http.MethodPost, "/", `{"name":"Savings"}`); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for duplicate, got %d", rec.Code)
	}
	if rec := f.call(h.Create, http.MethodPost, "/", `{"name":"  "}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for blank name, got %d", rec.Code)
	}

	if rec := f.call(h.Delete, http.MethodDelete, "/", "", "id", groups[0].ID.String()); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for default group, got %d", rec.Code)
	}
	if rec := f.call(h.Delete, http.MethodDelete, "/", "", "id", uuid.NewString()); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown group, got %d", rec.Code)
	}
	if rec := f.call(h.Delete, http.MethodDelete, "/", "", "id", "nope"); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed id, got %d", rec.Code)
	}
}

func TestSettings(t *testing.T) {
	f := newFixture()
	h := NewSettingsHandler(f.store, f.service)

	rec := f.call(h.Get, http.MethodGet, "/", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"average_months":3`) {
		t.Fatalf("expected default 3, got %d %s", rec.Code, rec.Body.String())
	}

	if rec := f.call(h.Update, http.MethodPut, "/", `{"average_months":25}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 above max, got %d", rec.Code)
	}
	if rec := f.call(h.Update, http.MethodPut, "/", `{"average_months":0}`); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for zero, got %d", rec.Code)
	}

	rec = f.call(h.Update, http.MethodPut, "/", `{"average_months":6}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rec = f.call(h.Get, http.MethodGet, "/", "")
	if !strings.Contains(rec.Body.String(), `"average_months":6`) {
		t.Fatalf("expected stored 6, got %s", rec.Body.String())
	}
}

type downPinger struct{}

func (downPinger) Ping(context.Context) error {
	return errors.New("connection refused")
}

func TestHealth(t *testing.T) {
	f := newFixture()

	rec := f.call(NewHealthHandler("memory", f.store).Health, http.MethodGet, "/health", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp HealthResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Status != "ok" || resp.Backend != "memory" {
		t.Fatalf("unexpected response %+v", resp)
	}

	rec = f.call(NewHealthHandler("postgres", downPinger{}).Health, http.MethodGet, "/health", "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "connection refused") {
		t.Fatalf("driver error must not leak: %s", rec.Body.String())
	}
}
