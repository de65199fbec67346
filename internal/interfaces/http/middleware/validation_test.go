package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/feedsync/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type catalogSettingsRequest struct {
	Name          string   `json:"name" binding:"required,max=10"`
	AdPlatform    string   `json:"ad_platform" binding:"omitempty,ad_platform"`
	FeedFormat    string   `json:"feed_format" binding:"omitempty,feed_format"`
	StockHandling string   `json:"stock_handling" binding:"omitempty,stock_handling"`
	ProductIDs    []string `json:"product_ids" binding:"max=2"`
}

func TestSetupValidator(t *testing.T) {
	require.NoError(t, SetupValidator())
	// Idempotent
	require.NoError(t, SetupValidator())
}

func TestRegisterValidations(t *testing.T) {
	v := validator.New()
	v.SetTagName("binding")
	require.NoError(t, RegisterValidations(v))

	tests := []struct {
		name    string
		req     catalogSettingsRequest
		wantErr []string
	}{
		{
			name: "valid enums",
			req:  catalogSettingsRequest{Name: "Summer", AdPlatform: "META_CATALOG", FeedFormat: "XML", StockHandling: "ALLOW_TEMPORARILY"},
		},
		{
			name: "empty enums are optional",
			req:  catalogSettingsRequest{Name: "Summer"},
		},
		{
			name:    "unknown values",
			req:     catalogSettingsRequest{Name: "Summer", AdPlatform: "MYSPACE", FeedFormat: "JSONL", StockHandling: "HIDE"},
			wantErr: []string{"ad_platform", "feed_format", "stock_handling"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Struct(tt.req)
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			var verrs validator.ValidationErrors
			require.ErrorAs(t, err, &verrs)
			fields := make([]string, 0, len(verrs))
			for _, e := range verrs {
				fields = append(fields, e.Field())
			}
			assert.ElementsMatch(t, tt.wantErr, fields)
		})
	}
}

func TestHandleValidationError(t *testing.T) {
	require.NoError(t, SetupValidator())

	router := gin.New()
	router.Use(RequestID())
	router.POST("/catalogs", func(c *gin.Context) {
		var req catalogSettingsRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusCreated)
	})

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/catalogs", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("lists rejected fields by JSON name", func(t *testing.T) {
		w := post(`{"name":"a very long catalog name","ad_platform":"MYSPACE","product_ids":["a","b","c"]}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
		assert.NotEmpty(t, resp.Error.RequestID)

		messages := map[string]string{}
		for _, d := range resp.Error.Details {
			messages[d.Field] = d.Message
		}
		assert.Equal(t, "Must be at most 10 characters", messages["name"])
		assert.Contains(t, messages["ad_platform"], "GOOGLE_MERCHANT_CENTER")
		assert.Equal(t, "Must contain at most 2 items", messages["product_ids"])
	})

	t.Run("missing required field", func(t *testing.T) {
		w := post(`{}`)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Len(t, resp.Error.Details, 1)
		assert.Equal(t, "name", resp.Error.Details[0].Field)
		assert.Equal(t, "This field is required", resp.Error.Details[0].Message)
	})

	t.Run("valid body passes", func(t *testing.T) {
		w := post(`{"name":"Summer","feed_format":"CSV"}`)
		assert.Equal(t, http.StatusCreated, w.Code)
	})

	t.Run("malformed JSON has no details", func(t *testing.T) {
		w := post(`{"name":`)
		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, resp.Error.Details)
	})
}
