package echoapi_test

import (
	"encoding/base64"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/mail"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/masomo-console/apps/api/echo"
	"github.com/trezcool/masomo-console/core"
	"github.com/trezcool/masomo-console/core/report"
	"github.com/trezcool/masomo-console/services/email"
	"github.com/trezcool/masomo-console/tests"
)

func Test_exportApi(t *testing.T) {
	app := setup(t)

	adminToken := app.token(t, testutil.AdminID)
	tests := []httpTest{
		{name: "Auth required", path: "/v1/exports", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "hod cannot export", path: "/v1/exports/courses", token: app.token(t, testutil.HODID), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "students cannot export", path: "/v1/exports/courses", token: app.token(t, testutil.StudentID), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "datasets", path: "/v1/exports", token: adminToken, wantData: marchallObj(t, report.Names())},
		{name: "unknown dataset", path: "/v1/exports/salaries", token: adminToken, wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "unknown dataset"})},
		{
			name: "unknown format", path: "/v1/exports/courses?format=xml", token: adminToken,
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"format": "format must be one of csv, json"}),
		},
	}
	runHTTPTests(t, app, tests)
}

func Test_exportApi_download(t *testing.T) {
	app := setup(t)

	adminToken := app.token(t, testutil.AdminID)
	today := core.NowFunc().Format(core.DateLayout)

	t.Run("csv", func(t *testing.T) {
		rec := app.serve(newAuthRequest(http.MethodGet, "/v1/exports/programs", adminToken))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "text/csv", rec.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="programs-`+today+`.csv"`, rec.Header().Get("Content-Disposition"))

		records, err := csv.NewReader(rec.Body).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 4) // header + 3 programs
		assert.Equal(t, []string{"id", "name", "code"}, records[0][:3])
		assert.Equal(t, []string{"PRG001", "Bachelor of Science in Computer Science", "BSC-CS"}, records[1][:3])
		assert.Contains(t, records[1], "Artificial Intelligence; Cybersecurity")
	})

	t.Run("json", func(t *testing.T) {
		rec := app.serve(newAuthRequest(http.MethodGet, "/v1/exports/duties?format=json", adminToken))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		assert.Equal(t, `attachment; filename="exam-duties-export-`+today+`.json"`, rec.Header().Get("Content-Disposition"))

		var rows []map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
		require.Len(t, rows, 2)
		assert.Equal(t, "DUTY001", rows[0]["id"])
		assert.Equal(t, []interface{}{"INV001", "INV003"}, rows[0]["assigned_invigilators"])
		assert.NotContains(t, rows[0], "notes", "only dataset columns are exported")
	})

	t.Run("courses", func(t *testing.T) {
		rec := app.serve(newAuthRequest(http.MethodGet, "/v1/exports/courses", adminToken))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		records, err := csv.NewReader(rec.Body).ReadAll()
		require.NoError(t, err)
		assert.Len(t, records, 4)
	})
}

func Test_exportApi_mail(t *testing.T) {
	app := setup(t)

	admin := testutil.GetUser(t, app.db, testutil.AdminID)
	today := core.NowFunc().Format(core.DateLayout)

	emailsvc.ClearSentMessages()
	rec := app.serve(newAuthRequest(http.MethodPost, "/v1/exports/invigilators/mail?format=json", app.token(t, testutil.AdminID)))
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())

	var resp echoapi.SuccessResponse
	decode(t, rec, &resp)
	assert.Equal(t, "The export will arrive in your inbox shortly.", resp.Success)

	msg, ok := emailsvc.LastSentMessage()
	require.True(t, ok, "no email sent")
	assert.Equal(t, []mail.Address{{Name: admin.Name, Address: admin.Email}}, msg.To)
	assert.Equal(t, "invigilators export", msg.Subject)
	require.Len(t, msg.Attachments, 1)

	at := msg.Attachments[0]
	assert.Equal(t, "invigilators-export-"+today+".json", at.Filename)
	assert.Equal(t, "application/json", at.ContentType)

	content, err := base64.StdEncoding.DecodeString(at.Content.String())
	require.NoError(t, err)
	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal(content, &rows))
	assert.Len(t, rows, 4)

	t.Run("unknown dataset sends nothing", func(t *testing.T) {
		emailsvc.ClearSentMessages()
		rec := app.serve(newAuthRequest(http.MethodPost, "/v1/exports/salaries/mail", app.token(t, testutil.AdminID)))
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Empty(t, emailsvc.SentMessages)
	})
}
