package echoapi_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/dripfeed/core/course"
	"github.com/trezcool/dripfeed/tests"
)

const (
	coach   = "coach-1"
	learner = "learner-1"
)

func TestServer_home(t *testing.T) {
	app := setup(t)

	req, rec := newAuthRequest(http.MethodGet, "/", "")
	app.srv.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to Dripfeed API!", rec.Body.String())

	tt := httpTest{method: http.MethodGet, path: "/health", wantCode: http.StatusOK}
	tt.wantData = marchallObj(t, map[string]string{"status": "ok", "build": ""})
	checkCodeAndData(t, tt, app.do(tt))
}

func Test_courseApi_auth(t *testing.T) {
	app := setup(t)
	c := testutil.CreateCourse(t, app.repo, coach, true)
	path := "/v1/courses/" + c.ID + "/drip-schedule"

	tests := []httpTest{
		{name: "no token", token: "", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "bad token", token: "not.a.jwt", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "invalid or expired jwt"})},
		{name: "no subject", token: getToken(t, app.conf, ""), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, httpErr{Error: "user not authenticated"})},
		{name: "trailing slash", token: getToken(t, app.conf, coach), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = path
		if tt.name == "trailing slash" {
			tt.path += "/"
		}

		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(tt))
		})
	}
}

func Test_courseApi_previewSchedule(t *testing.T) {
	app := setup(t)
	mockNow(t, testutil.Anchor.Add(48*time.Hour))
	c := testutil.CreateCourse(t, app.repo, coach, true)
	off := testutil.CreateCourse(t, app.repo, coach, false)

	sched := func(courseID string) []byte {
		s, err := app.svc.PreviewSchedule(context.Background(), courseID, coach)
		require.NoError(t, err)
		return marchallObj(t, s)
	}

	tests := []httpTest{
		{name: "unknown course", path: "/v1/courses/nope/drip-schedule", token: getToken(t, app.conf, coach), wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "course not found"})},
		{name: "not the owner", path: "/v1/courses/" + c.ID + "/drip-schedule", token: getToken(t, app.conf, learner), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"})},
		{name: "drip enabled", path: "/v1/courses/" + c.ID + "/drip-schedule", token: getToken(t, app.conf, coach), wantCode: http.StatusOK, wantData: sched(c.ID)},
		{name: "drip disabled", path: "/v1/courses/" + off.ID + "/drip-schedule", token: getToken(t, app.conf, coach), wantCode: http.StatusOK, wantData: sched(off.ID)},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(tt))
		})
	}

	t.Run("disabled payload", func(t *testing.T) {
		tt := httpTest{method: http.MethodGet, path: "/v1/courses/" + off.ID + "/drip-schedule", token: getToken(t, app.conf, coach)}
		rec := app.do(tt)
		var got map[string]interface{}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, false, got["drip_enabled"])
		assert.NotEmpty(t, got["message"])
		assert.Nil(t, got["lessons"])
	})
}

func Test_courseApi_enrollmentSchedule(t *testing.T) {
	app := setup(t)
	mockNow(t, testutil.Anchor.AddDate(0, 0, 5))
	c := testutil.CreateCourse(t, app.repo, coach, true)
	enr := testutil.CreateEnrollment(t, app.repo, c, learner, course.EnrollmentActive, testutil.Anchor)

	path := func(enrollmentID string) string {
		return fmt.Sprintf("/v1/courses/%s/drip-schedule/enrollments/%s", c.ID, enrollmentID)
	}
	s, err := app.svc.EnrollmentSchedule(context.Background(), c.ID, enr.ID, coach)
	require.NoError(t, err)
	want := marchallObj(t, s)

	tests := []httpTest{
		{name: "unknown enrollment", path: path("nope"), token: getToken(t, app.conf, coach), wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "enrollment not found"})},
		{name: "someone else", path: path(enr.ID), token: getToken(t, app.conf, "intruder"), wantCode: http.StatusForbidden},
		{name: "owner", path: path(enr.ID), token: getToken(t, app.conf, coach), wantCode: http.StatusOK, wantData: want},
		{name: "enrolled learner", path: path(enr.ID), token: getToken(t, app.conf, learner), wantCode: http.StatusOK, wantData: want},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet

		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(tt))
		})
	}
}

func Test_courseApi_updateDripSettings(t *testing.T) {
	app := setup(t)
	mockNow(t, testutil.Anchor)
	c := testutil.CreateCourse(t, app.repo, coach, false)
	path := "/v1/courses/" + c.ID + "/drip-settings"

	tests := []httpTest{
		{name: "malformed body", body: []byte(`{"drip_count": "two"`), token: getToken(t, app.conf, coach), wantCode: http.StatusBadRequest},
		{name: "bad unit", body: []byte(`{"drip_interval_unit": "yearly"}`), token: getToken(t, app.conf, coach), wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"drip_interval_unit": "drip_interval_unit must be one of: daily, weekly, monthly"})},
		{name: "negative count", body: []byte(`{"drip_count": -1}`), token: getToken(t, app.conf, coach), wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"drip_count": "drip_count must be 0 or greater"})},
		{name: "not the owner", body: []byte(`{"is_drip_enabled": true}`), token: getToken(t, app.conf, learner), wantCode: http.StatusForbidden},
		{name: "enable", body: []byte(`{"is_drip_enabled": true, "drip_interval_unit": "Daily", "drip_count": 2}`), token: getToken(t, app.conf, coach), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		tt.method = http.MethodPut
		tt.path = path

		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(tt))
		})
	}

	got, err := app.repo.GetCourse(context.Background(), c.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDripEnabled)
	assert.Equal(t, course.IntervalDaily, got.DripIntervalUnit)
	assert.Equal(t, 2, got.DripCount)
}

func Test_courseApi_updateLessonDripSettings(t *testing.T) {
	app := setup(t)
	c := testutil.CreateCourse(t, app.repo, coach, true)
	ids := testutil.LessonIDs(c)
	path := "/v1/courses/" + c.ID + "/lessons/drip-settings"

	body := func(settings ...course.LessonDripSetting) []byte {
		return marchallObj(t, course.UpdateLessonDrip{Lessons: settings})
	}

	tests := []httpTest{
		{name: "empty batch", body: body(), token: getToken(t, app.conf, coach), wantCode: http.StatusBadRequest},
		{
			name:     "negative days",
			body:     body(course.LessonDripSetting{LessonID: ids[0], Days: -2}),
			token:    getToken(t, app.conf, coach),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"lessons[0].days": "days must be 0 or greater"}),
		},
		{
			name:     "duplicate lesson",
			body:     body(course.LessonDripSetting{LessonID: ids[0], Days: 1}, course.LessonDripSetting{LessonID: ids[0], Days: 2}),
			token:    getToken(t, app.conf, coach),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"lessons[1].lesson_id": fmt.Sprintf("lesson %s is listed more than once", ids[0])}),
		},
		{
			name:     "unknown lesson",
			body:     body(course.LessonDripSetting{LessonID: ids[0], Days: 1}, course.LessonDripSetting{LessonID: "nope", Days: 2}),
			token:    getToken(t, app.conf, coach),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "lesson not found"}),
		},
		{
			name:     "not the owner",
			body:     body(course.LessonDripSetting{LessonID: ids[0], Days: 1}),
			token:    getToken(t, app.conf, learner),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "ok",
			body:     body(course.LessonDripSetting{LessonID: ids[0], Days: 1}, course.LessonDripSetting{LessonID: ids[3], Days: 20, Basis: course.BasisPreviousLesson}),
			token:    getToken(t, app.conf, coach),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, map[string]int{"updated": 2}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPut
		tt.path = path

		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(tt))
		})
	}

	got, err := app.repo.GetCourse(context.Background(), c.ID)
	require.NoError(t, err)
	lessons := got.Lessons()
	assert.Equal(t, 1, lessons[0].DripDelay)
	assert.Equal(t, 3, lessons[1].DripDelay)
	assert.Equal(t, 20, lessons[3].DripDelay)
	assert.Equal(t, course.BasisPreviousLesson, lessons[3].DripBasis)
}

func Test_courseApi_access(t *testing.T) {
	app := setup(t)
	c := testutil.CreateCourse(t, app.repo, coach, true)
	enr := testutil.CreateEnrollment(t, app.repo, c, learner, course.EnrollmentActive, testutil.Anchor)
	testutil.CreateEnrollment(t, app.repo, c, "dropout", course.EnrollmentCancelled, testutil.Anchor)
	path := "/v1/courses/" + c.ID + "/access"

	tests := []httpTest{
		{name: "enrolled", token: getToken(t, app.conf, learner), wantData: marchallObj(t, course.AccessDecision{HasAccess: true, Enrollment: &enr})},
		{name: "cancelled", token: getToken(t, app.conf, "dropout"), wantData: marchallObj(t, course.AccessDecision{IsPreview: true})},
		{name: "stranger", token: getToken(t, app.conf, "stranger"), wantData: marchallObj(t, course.AccessDecision{IsPreview: true})},
	}
	for _, tt := range tests {
		tt.method = http.MethodGet
		tt.path = path
		tt.wantCode = http.StatusOK

		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(tt))
		})
	}
}

func Test_courseApi_preview(t *testing.T) {
	app := setup(t)
	c := testutil.CreateCourse(t, app.repo, coach, true)
	ids := testutil.LessonIDs(c)
	chapters := c.OrderedChapters()

	tests := []httpTest{
		{
			name:     "get",
			method:   http.MethodGet,
			path:     "/v1/courses/" + c.ID + "/preview",
			token:    getToken(t, app.conf, learner),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, course.PreviewContent{FreeChapterIDs: []string{chapters[0].ID}, FreeLessonIDs: []string{ids[0]}}),
		},
		{
			name:     "set: not the owner",
			method:   http.MethodPut,
			path:     "/v1/courses/" + c.ID + "/preview-lessons",
			body:     []byte(`{"free_lesson_ids": []}`),
			token:    getToken(t, app.conf, learner),
			wantCode: http.StatusForbidden,
		},
		{
			name:     "set: unknown lesson",
			method:   http.MethodPut,
			path:     "/v1/courses/" + c.ID + "/preview-lessons",
			body:     marchallObj(t, map[string][]string{"free_lesson_ids": {ids[1], "nope"}}),
			token:    getToken(t, app.conf, coach),
			wantCode: http.StatusNotFound,
		},
		{
			name:     "set",
			method:   http.MethodPut,
			path:     "/v1/courses/" + c.ID + "/preview-lessons",
			body:     marchallObj(t, map[string][]string{"free_lesson_ids": {ids[2], ids[1]}}),
			token:    getToken(t, app.conf, coach),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, course.PreviewContent{FreeChapterIDs: []string{chapters[0].ID}, FreeLessonIDs: []string{ids[1], ids[2]}}),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(tt))
		})
	}
}

func Test_courseApi_updatePaywallSettings(t *testing.T) {
	app := setup(t)
	c := testutil.CreateCourse(t, app.repo, coach, true)
	ids := testutil.LessonIDs(c)
	chapters := c.OrderedChapters()
	path := "/v1/courses/" + c.ID + "/paywall-settings"

	two := 2
	okBody := marchallObj(t, course.UpdatePaywallSettings{
		PaymentOptions: []course.PaymentOption{
			{Type: course.PricingInstallment, Price: 99, Currency: "eur"},
			{Type: course.PricingRecurring, Price: 10},
		},
		PreviewContent: &course.PreviewSelection{FreeLessonIDs: []string{ids[3]}, FreeChapterCount: &two},
	})

	tests := []httpTest{
		{name: "bad payment type", body: []byte(`{"payment_options": [{"type": "barter", "price": 1}]}`), token: getToken(t, app.conf, coach), wantCode: http.StatusBadRequest},
		{name: "unknown preview lesson", body: []byte(`{"preview_content": {"free_lesson_ids": ["nope"]}}`), token: getToken(t, app.conf, coach), wantCode: http.StatusNotFound},
		{name: "not the owner", body: okBody, token: getToken(t, app.conf, learner), wantCode: http.StatusForbidden},
		{
			name:     "ok",
			body:     okBody,
			token:    getToken(t, app.conf, coach),
			wantCode: http.StatusOK,
			wantData: marchallObj(t, course.PaywallSummary{
				CourseID:                c.ID,
				Price:                   99,
				Currency:                "EUR",
				PricingType:             course.PricingInstallment,
				AllowInstallments:       true,
				AllowSubscriptions:      true,
				FreePreviewChapterCount: 2,
				Preview: course.PreviewContent{
					FreeChapterIDs: []string{chapters[0].ID, chapters[1].ID},
					FreeLessonIDs:  []string{ids[3]},
				},
			}),
		},
	}
	for _, tt := range tests {
		tt.method = http.MethodPut
		tt.path = path

		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, app.do(tt))
		})
	}
}

func Test_appHTTPErrorHandler_validationMessage(t *testing.T) {
	app := setup(t)
	c := testutil.CreateCourse(t, app.repo, coach, true)

	tt := httpTest{
		method: http.MethodPut,
		path:   "/v1/courses/" + c.ID + "/preview-lessons",
		body:   []byte(`{"free_lesson_ids": "all"}`),
		token:  getToken(t, app.conf, coach),
	}
	rec := app.do(tt)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	var got httpErr
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Contains(t, got.Error, "free_lesson_ids")
}
