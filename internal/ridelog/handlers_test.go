package ridelog

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/pashagolub/pgxmock/v3"
)

func TestRidelogHandlers(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	start := time.Now()
	rows := func() *pgxmock.Rows {
		return pgxmock.NewRows([]string{"id", "session_id", "lat", "lng", "speed_mps", "heading_deg", "accuracy_m", "recorded_at", "created_at"}).
			AddRow(int64(1), "session-1", -6.2, 106.8, (*float64)(nil), (*float64)(nil), (*float64)(nil), start, start)
	}
	mock.ExpectQuery(`SELECT id, session_id`).WithArgs("session-1").WillReturnRows(rows())
	mock.ExpectQuery(`SELECT id, session_id`).WithArgs("session-1").WillReturnRows(rows())

	app := fiber.New()
	RegisterRoutes(app.Group("/ridelog"), NewService(mock))

	req := httptest.NewRequest(http.MethodGet, "/ridelog/sessions/session-1/fixes", nil)
	resp, err := app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("fixes status: %v", err)
	}
	var fixes []Fix
	if err := json.NewDecoder(resp.Body).Decode(&fixes); err != nil {
		t.Fatalf("decode fixes: %v", err)
	}
	if len(fixes) != 1 || fixes[0].SessionID != "session-1" {
		t.Errorf("unexpected fixes: %+v", fixes)
	}

	req = httptest.NewRequest(http.MethodGet, "/ridelog/sessions/session-1/summary", nil)
	resp, err = app.Test(req)
	if err != nil || resp.StatusCode != http.StatusOK {
		t.Fatalf("summary status: %v", err)
	}
	var summary Summary
	if err := json.NewDecoder(resp.Body).Decode(&summary); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	if summary.FixCount != 1 {
		t.Errorf("unexpected summary: %+v", summary)
	}
}

func TestRidelogHandlersError(t *testing.T) {
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("mock pool: %v", err)
	}
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, session_id`).WithArgs("session-x").WillReturnError(errLog)

	app := fiber.New()
	RegisterRoutes(app.Group("/ridelog"), NewService(mock))

	req := httptest.NewRequest(http.MethodGet, "/ridelog/sessions/session-x/fixes", nil)
	resp, _ := app.Test(req)
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", resp.StatusCode)
	}
}
