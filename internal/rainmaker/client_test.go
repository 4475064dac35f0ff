package rainmaker

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/richd0tcom/yaku/internal/domain"
	"github.com/richd0tcom/yaku/internal/rainmaker/rainmakertest"
)

const testNodeID = "USANptj2EUMgXBjNZnwqhE"

var testCreds = domain.Credentials{UserName: "yaku@example.com", Password: "secret"}

func newTestClient(t *testing.T, baseURL string, opts ...Option) *Client {
	t.Helper()
	c, err := NewClient(baseURL, testCreds, testNodeID, opts...)
	require.NoError(t, err)
	return c
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient("", testCreds, testNodeID)
	assert.ErrorIs(t, err, ErrEmptyBaseURL)

	_, err = NewClient("http://localhost", testCreds, "")
	assert.ErrorIs(t, err, ErrEmptyNodeID)

	c, err := NewClient("http://localhost/", testCreds, testNodeID)
	require.NoError(t, err)
	assert.Equal(t, "http://localhost", c.baseURL)
	assert.Equal(t, DefaultParamGroup, c.ParamGroup())
	assert.Equal(t, testNodeID, c.NodeID())
}

func TestLogin_ReturnsAccessToken(t *testing.T) {
	srv := rainmakertest.NewServer(testCreds.UserName, testCreds.Password, "tok123")
	defer srv.Close()

	token, err := newTestClient(t, srv.URL).Login(context.Background())

	require.NoError(t, err)
	assert.Equal(t, "tok123", token)
	assert.Equal(t, int64(1), srv.Logins.Load())
}

func TestLogin_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   any
		creds  domain.Credentials
		want   error
	}{
		{
			name:   "missing_token",
			status: http.StatusOK,
			body:   map[string]string{"status": "success"},
			creds:  testCreds,
			want:   ErrMissingToken,
		},
		{
			name:   "empty_token",
			status: http.StatusOK,
			body:   map[string]string{"accesstoken": ""},
			creds:  testCreds,
			want:   ErrMissingToken,
		},
		{
			name:   "server_error",
			status: http.StatusInternalServerError,
			body:   map[string]string{"status": "failure"},
			creds:  testCreds,
			want:   ErrUnexpectedStatus,
		},
		{
			name:  "bad_credentials",
			creds: domain.Credentials{UserName: "someone", Password: "wrong"},
			want:  ErrUnexpectedStatus,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := rainmakertest.NewServer(testCreds.UserName, testCreds.Password, "tok123")
			defer srv.Close()
			if tt.body != nil {
				srv.SetLoginResponse(tt.status, tt.body)
			}

			c, err := NewClient(srv.URL, tt.creds, testNodeID)
			require.NoError(t, err)

			token, err := c.Login(context.Background())
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, token)
		})
	}
}

func TestLogin_MalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).Login(context.Background())
	assert.Error(t, err)
}

func TestNodeParams_ReturnsGroupUnchanged(t *testing.T) {
	srv := rainmakertest.NewServer(testCreds.UserName, testCreds.Password, "tok123")
	defer srv.Close()
	srv.SetNodeParams(testNodeID, map[string]any{
		"Temperature Sensor": map[string]any{"Temperature": 22.3, "Humidity": 45, "Name": "Temperature Sensor"},
		"Time":               map[string]any{"TZ": "America/Bogota"},
	})

	params, err := newTestClient(t, srv.URL).NodeParams(context.Background(), "tok123")

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"Temperature": 22.3, "Humidity": int64(45), "Name": "Temperature Sensor"}, params)
}

func TestNodeParams_KeepsIntegersIntegral(t *testing.T) {
	srv := rainmakertest.NewServer(testCreds.UserName, testCreds.Password, "tok123")
	defer srv.Close()
	srv.SetNodeParams(testNodeID, map[string]any{
		"Temperature Sensor": map[string]any{
			"Temperature": 22.3,
			"Humidity":    45,
			"Uptime":      int64(9007199254740993),
			"History":     []any{1, 2.5, map[string]any{"Count": 3}},
		},
	})

	params, err := newTestClient(t, srv.URL).NodeParams(context.Background(), "tok123")
	require.NoError(t, err)

	assert.Equal(t, int64(9007199254740993), params["Uptime"])
	assert.Equal(t, []any{int64(1), 2.5, map[string]any{"Count": int64(3)}}, params["History"])

	raw, err := bson.Marshal(bson.M(params))
	require.NoError(t, err)
	doc := bson.Raw(raw)
	assert.Contains(t, []bson.Type{bson.TypeInt32, bson.TypeInt64}, doc.Lookup("Humidity").Type)
	assert.Equal(t, bson.TypeDouble, doc.Lookup("Temperature").Type)
}

func TestNodeParams_SendsRawAuthorizationHeader(t *testing.T) {
	var gotAuth, gotNode string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotNode = r.URL.Query().Get("node_id")
		_, _ = w.Write([]byte(`{"Temperature Sensor": {"Temperature": 1}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).NodeParams(context.Background(), "tok123")

	require.NoError(t, err)
	assert.Equal(t, "tok123", gotAuth)
	assert.Equal(t, testNodeID, gotNode)
}

func TestNodeParams_Failures(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		token string
		want  error
	}{
		{name: "missing_group", body: `{"Switch": {"Power": true}}`, token: "tok123", want: ErrMissingParamGroup},
		{name: "group_not_object", body: `{"Temperature Sensor": 21}`, token: "tok123", want: ErrMissingParamGroup},
		{name: "group_null", body: `{"Temperature Sensor": null}`, token: "tok123", want: ErrMissingParamGroup},
		{name: "empty_token", body: `{}`, token: "", want: ErrEmptyToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			params, err := newTestClient(t, srv.URL).NodeParams(context.Background(), tt.token)
			assert.ErrorIs(t, err, tt.want)
			assert.Nil(t, params)
		})
	}
}

func TestNodeParams_UnknownNode(t *testing.T) {
	srv := rainmakertest.NewServer(testCreds.UserName, testCreds.Password, "tok123")
	defer srv.Close()

	_, err := newTestClient(t, srv.URL).NodeParams(context.Background(), "tok123")
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

func TestNodeParams_CustomGroup(t *testing.T) {
	srv := rainmakertest.NewServer(testCreds.UserName, testCreds.Password, "tok123")
	defer srv.Close()
	srv.SetNodeParams(testNodeID, map[string]any{"Light": map[string]any{"Power": true}})

	params, err := newTestClient(t, srv.URL, WithParamGroup("Light")).NodeParams(context.Background(), "tok123")

	require.NoError(t, err)
	assert.Equal(t, map[string]any{"Power": true}, params)
}

func TestListNodes(t *testing.T) {
	srv := rainmakertest.NewServer(testCreds.UserName, testCreds.Password, "tok123")
	defer srv.Close()
	srv.SetNodeParams(testNodeID, map[string]any{})

	nodes, err := newTestClient(t, srv.URL).ListNodes(context.Background(), "tok123")
	require.NoError(t, err)
	assert.Equal(t, []string{testNodeID}, nodes)

	_, err = newTestClient(t, srv.URL).ListNodes(context.Background(), "wrong")
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user",
		"exp": exp.Unix(),
	})
	s, err := token.SignedString([]byte("test-key"))
	require.NoError(t, err)
	return s
}

func TestTokenExpiry(t *testing.T) {
	exp := time.Now().Add(time.Hour).Truncate(time.Second)

	got, ok := TokenExpiry(signedToken(t, exp))
	require.True(t, ok)
	assert.True(t, exp.Equal(got))

	_, ok = TokenExpiry("tok123")
	assert.False(t, ok)
}

func TestLogin_TokenReuse(t *testing.T) {
	now := time.Now()
	token := signedToken(t, now.Add(time.Hour))
	srv := rainmakertest.NewServer(testCreds.UserName, testCreds.Password, token)
	defer srv.Close()

	clock := now
	c := newTestClient(t, srv.URL, WithTokenReuse(true), withClock(func() time.Time { return clock }))

	for i := 0; i < 3; i++ {
		got, err := c.Login(context.Background())
		require.NoError(t, err)
		assert.Equal(t, token, got)
	}
	assert.Equal(t, int64(1), srv.Logins.Load())

	// within the expiry margin a fresh login happens
	clock = now.Add(59 * time.Minute)
	_, err := c.Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), srv.Logins.Load())
}

func TestLogin_NoReuseForOpaqueTokens(t *testing.T) {
	srv := rainmakertest.NewServer(testCreds.UserName, testCreds.Password, "tok123")
	defer srv.Close()

	c := newTestClient(t, srv.URL, WithTokenReuse(true))
	for i := 0; i < 2; i++ {
		_, err := c.Login(context.Background())
		require.NoError(t, err)
	}
	assert.Equal(t, int64(2), srv.Logins.Load())
}

func TestLogin_ContextCanceled(t *testing.T) {
	srv := rainmakertest.NewServer(testCreds.UserName, testCreds.Password, "tok123")
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestClient(t, srv.URL).Login(ctx)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestNodeParams_UnauthorizedDropsCachedToken(t *testing.T) {
	now := time.Now()
	first := signedToken(t, now.Add(time.Hour))
	srv := rainmakertest.NewServer(testCreds.UserName, testCreds.Password, first)
	defer srv.Close()
	srv.SetNodeParams(testNodeID, map[string]any{"Temperature Sensor": map[string]any{"Temperature": 20.1}})

	c := newTestClient(t, srv.URL, WithTokenReuse(true), withClock(func() time.Time { return now }))

	token, err := c.Login(context.Background())
	require.NoError(t, err)
	require.Equal(t, first, token)

	second := signedToken(t, now.Add(2*time.Hour))
	srv.SetToken(second)

	_, err = c.NodeParams(context.Background(), token)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusUnauthorized, statusErr.Code)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)

	token, err = c.Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, second, token)
	assert.Equal(t, int64(2), srv.Logins.Load())

	_, err = c.NodeParams(context.Background(), token)
	assert.NoError(t, err)
}

func TestNodeParams_NotFoundKeepsCachedToken(t *testing.T) {
	now := time.Now()
	token := signedToken(t, now.Add(time.Hour))
	srv := rainmakertest.NewServer(testCreds.UserName, testCreds.Password, token)
	defer srv.Close()

	c := newTestClient(t, srv.URL, WithTokenReuse(true), withClock(func() time.Time { return now }))
	_, err := c.Login(context.Background())
	require.NoError(t, err)

	_, err = c.NodeParams(context.Background(), token)
	require.ErrorIs(t, err, ErrUnexpectedStatus)

	_, err = c.Login(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), srv.Logins.Load())
}

func TestOptions_TimeoutIndependentOfOrder(t *testing.T) {
	hc := &http.Client{}

	before := newTestClient(t, "http://rainmaker.test", WithTimeout(3*time.Second), WithHTTPClient(hc))
	assert.Same(t, hc, before.client)
	assert.Equal(t, 3*time.Second, before.client.Timeout)

	hc2 := &http.Client{}
	after := newTestClient(t, "http://rainmaker.test", WithHTTPClient(hc2), WithTimeout(3*time.Second))
	assert.Same(t, hc2, after.client)
	assert.Equal(t, 3*time.Second, after.client.Timeout)
}
