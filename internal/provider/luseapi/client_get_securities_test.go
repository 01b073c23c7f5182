package luseapi_test

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/chamatitus-cpu/luse-price-api/internal/httpx"
	"github.com/chamatitus-cpu/luse-price-api/internal/provider/luseapi"
)

const endpoint = "https://example.test/api/securities"

func respond(status int, body string) func(*http.Request) (*http.Response, error) {
	return func(*http.Request) (*http.Response, error) {
		return &http.Response{StatusCode: status, Body: io.NopCloser(strings.NewReader(body))}, nil
	}
}

func TestGetSecurities_TopLevelArray(t *testing.T) {
	t.Parallel()

	// Arrange: create a mock HTTP client
	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)

	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(req *http.Request) (*http.Response, error) {
			require.Equal(t, http.MethodGet, req.Method)
			require.Equal(t, endpoint, req.URL.String())
			require.Equal(t, "application/json", req.Header.Get("Accept"))
			require.Equal(t, "agent-b", req.Header.Get("User-Agent"))
			return respond(http.StatusOK, `[{"ticker":"KODT","lastPrice":22.68},"junk"]`)(req)
		}).
		Times(1)

	client := luseapi.NewClient(luseapi.WithURL(endpoint), luseapi.WithHTTPClient(httpClient))

	// Act
	recs, err := client.GetSecurities(t.Context(), luseapi.WithUserAgent("agent-b"))

	// Assert: the non-object element is dropped and numbers stay exact
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, "KODT", recs[0]["ticker"])
	require.Equal(t, "22.68", fmt.Sprint(recs[0]["lastPrice"]))
}

func TestGetSecurities_WrappedRecords(t *testing.T) {
	t.Parallel()

	cases := map[string]struct {
		key  string
		body string
	}{
		"well known key": {"", `{"status":"ok","securities":[{"ticker":"AVJN"}]}`},
		"dotted key":     {"payload.rows", `{"payload":{"rows":[{"ticker":"AVJN"}]}}`},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctrl := gomock.NewController(t)
			httpClient := NewMockHTTPClient(ctrl)
			httpClient.EXPECT().Do(gomock.Any()).DoAndReturn(respond(http.StatusOK, tc.body)).Times(1)

			client := luseapi.NewClient(
				luseapi.WithURL(endpoint),
				luseapi.WithHTTPClient(httpClient),
				luseapi.WithRecordsKey(tc.key),
			)
			recs, err := client.GetSecurities(t.Context())
			require.NoError(t, err)
			require.Len(t, recs, 1)
			require.Equal(t, "AVJN", recs[0]["ticker"])
		})
	}
}

func TestGetSecurities_ErrDecode(t *testing.T) {
	t.Parallel()

	for _, body := range []string{`<html>maintenance</html>`, `{"status":"ok"}`, `"text"`} {
		ctrl := gomock.NewController(t)
		httpClient := NewMockHTTPClient(ctrl)
		httpClient.EXPECT().Do(gomock.Any()).DoAndReturn(respond(http.StatusOK, body)).Times(1)

		client := luseapi.NewClient(luseapi.WithURL(endpoint), luseapi.WithHTTPClient(httpClient))
		recs, err := client.GetSecurities(t.Context())
		require.ErrorIsf(t, err, luseapi.ErrDecode, "body %s", body)
		require.Nil(t, recs)
	}
}

func TestGetSecurities_ErrUnexpectedStatusCode(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().Do(gomock.Any()).DoAndReturn(respond(http.StatusBadGateway, "")).Times(1)

	client := luseapi.NewClient(luseapi.WithURL(endpoint), luseapi.WithHTTPClient(httpClient))
	_, err := client.GetSecurities(t.Context())

	var se *httpx.StatusError
	require.True(t, errors.As(err, &se))
	require.Equal(t, http.StatusBadGateway, se.Code)
	require.NotErrorIs(t, err, luseapi.ErrDecode)
}

func TestGetSecurities_ErrPerformingRequest(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().
		Do(gomock.Any()).
		DoAndReturn(func(*http.Request) (*http.Response, error) {
			return nil, fmt.Errorf("connection reset")
		}).
		Times(1)

	client := luseapi.NewClient(luseapi.WithURL(endpoint), luseapi.WithHTTPClient(httpClient))
	recs, err := client.GetSecurities(t.Context())
	require.Error(t, err)
	require.Nil(t, recs)
}

func TestGetSecurities_ErrCreatingRequest(t *testing.T) {
	t.Parallel()

	ctrl := gomock.NewController(t)
	httpClient := NewMockHTTPClient(ctrl)
	httpClient.EXPECT().Do(gomock.Any()).Times(0)

	client := luseapi.NewClient(luseapi.WithHTTPClient(httpClient))
	_, err := client.GetSecurities(t.Context(), luseapi.WithURL(string([]rune{0x7f})))
	require.Error(t, err)
}
