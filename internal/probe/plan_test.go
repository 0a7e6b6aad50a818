package probe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ankityadav/upwatch/internal/storage"
)

func TestCompile(t *testing.T) {
	plan, err := Compile(&storage.Target{
		ID:               3,
		Name:             "api",
		URL:              "https://api.example.com/health",
		Method:           "POST",
		Headers:          `{"X-Token":"t"}`,
		CheckInterval:    30,
		Timeout:          7,
		AlertType:        storage.AlertHTTPStatusOtherThan,
		AlertStatusCodes: "200, 204",
	})
	require.NoError(t, err)

	assert.Equal(t, uint(3), plan.TargetID)
	assert.Equal(t, "POST", plan.Method)
	assert.Equal(t, "https", plan.Scheme)
	assert.Equal(t, "api.example.com", plan.Host)
	assert.Equal(t, "443", plan.Port)
	assert.Equal(t, 7*time.Second, plan.Timeout)
	assert.Equal(t, map[string]string{"X-Token": "t"}, plan.Headers)
	assert.Equal(t, []int{200, 204}, plan.Policy.AllowedCodes)
}

func TestCompileRejectsInvalidTargets(t *testing.T) {
	base := func() *storage.Target {
		return &storage.Target{Name: "x", URL: "http://example.com", CheckInterval: 60, Timeout: 10}
	}

	short := base()
	short.CheckInterval = 10
	_, err := Compile(short)
	assert.Error(t, err)

	noTimeout := base()
	noTimeout.Timeout = 0
	_, err = Compile(noTimeout)
	assert.Error(t, err)

	badHeaders := base()
	badHeaders.Headers = `["not","an","object"]`
	_, err = Compile(badHeaders)
	assert.Error(t, err)

	mixed := base()
	mixed.AlertType = storage.AlertContainsKeyword
	mixed.AlertKeyword = "ok"
	mixed.AlertStatusCodes = "200"
	_, err = Compile(mixed)
	assert.Error(t, err)

	missingKeyword := base()
	missingKeyword.AlertType = storage.AlertNotContainsKeyword
	_, err = Compile(missingKeyword)
	assert.Error(t, err)
}

func TestCompileDefaultsPlainHTTPPort(t *testing.T) {
	plan, err := Compile(&storage.Target{Name: "x", URL: "http://example.com", CheckInterval: 60, Timeout: 10})
	require.NoError(t, err)
	assert.Equal(t, "80", plan.Port)
	assert.Equal(t, "GET", plan.Method)
	assert.Equal(t, storage.AlertUnavailable, plan.Policy.Type)
}
