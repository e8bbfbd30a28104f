package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/01moynul/palett-api/internal/auth"
	"github.com/01moynul/palett-api/internal/credits"
	"github.com/01moynul/palett-api/internal/database"
	"github.com/01moynul/palett-api/internal/fal"
	"github.com/01moynul/palett-api/internal/handlers"
	"github.com/01moynul/palett-api/internal/models"
	"github.com/01moynul/palett-api/internal/routes"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeGenerator records calls and answers with canned results.
type fakeGenerator struct {
	calls atomic.Int32
	err   error
}

func (f *fakeGenerator) images(n int) (*fal.ImageResult, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	out := &fal.ImageResult{}
	for i := 0; i < n; i++ {
		out.Images = append(out.Images, fal.Image{URL: "https://cdn.test/img.png", Width: 1024, Height: 768})
	}
	return out, nil
}

func (f *fakeGenerator) video() (*fal.VideoResult, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &fal.VideoResult{Video: fal.File{URL: "https://cdn.test/v.mp4"}, Thumbnail: &fal.File{URL: "https://cdn.test/v.jpg"}}, nil
}

func (f *fakeGenerator) GenerateImage(_ context.Context, req fal.ImageRequest) (*fal.ImageResult, error) {
	return f.images(req.NumImages)
}
func (f *fakeGenerator) TransformImage(context.Context, fal.TransformRequest) (*fal.ImageResult, error) {
	return f.images(1)
}
func (f *fakeGenerator) Upscale(context.Context, fal.UpscaleRequest) (*fal.ImageResult, error) {
	return f.images(1)
}
func (f *fakeGenerator) RemoveBackground(context.Context, fal.BackgroundRequest) (*fal.ImageResult, error) {
	return f.images(1)
}
func (f *fakeGenerator) TextToVideo(context.Context, fal.VideoRequest) (*fal.VideoResult, error) {
	return f.video()
}
func (f *fakeGenerator) ImageToVideo(context.Context, fal.VideoRequest) (*fal.VideoResult, error) {
	return f.video()
}
func (f *fakeGenerator) EditImage(context.Context, fal.EditRequest) (*fal.ImageResult, error) {
	return f.images(1)
}

type fakeEnhancer struct {
	err error
}

func (f fakeEnhancer) Enhance(_ context.Context, prompt, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return prompt + ", cinematic lighting", nil
}

type env struct {
	t        *testing.T
	db       *database.DB
	app      *handlers.Handlers
	router   *gin.Engine
	issuer   *auth.Issuer
	fal      *fakeGenerator
	accounts *database.AccountStore
}

func newEnv(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, database.Options{
		Driver: database.DriverSQLite,
		DSN:    filepath.Join(t.TempDir(), "api.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx))

	issuer := auth.NewIssuer("test-secret", time.Hour)
	ledger := credits.New(database.NewLedgerStore(db), nil)
	uploadDir := t.TempDir()

	app := handlers.New(db, ledger, issuer, zerolog.Nop(), handlers.Settings{
		SignupCredits: 10,
		UploadDir:     uploadDir,
		BaseURL:       "http://api.test",
	})
	gen := &fakeGenerator{}
	app.Fal = gen

	router := routes.SetupRouter(app, routes.Options{
		CORSOrigin:            "http://localhost:3000",
		UploadDir:             uploadDir,
		GenerateRatePerMinute: 1000,
		GenerateBurst:         1000,
	})

	return &env{t: t, db: db, app: app, router: router, issuer: issuer, fal: gen, accounts: database.NewAccountStore(db)}
}

// account creates an account with the given balance and returns its id and token.
func (e *env) account(balance int64, role string) (string, string) {
	e.t.Helper()
	now := time.Now().UTC()
	acc := &models.Account{
		ID:           uuid.NewString(),
		Email:        uuid.NewString() + "@example.com",
		Name:         "Tester",
		PasswordHash: "x",
		Role:         role,
		Plan:         models.PlanFree,
		Credits:      balance,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	require.NoError(e.t, e.accounts.CreateAccount(context.Background(), acc))
	token, err := e.issuer.Issue(acc.ID, role)
	require.NoError(e.t, err)
	return acc.ID, token
}

func (e *env) do(method, path, token string, body any) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(e.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *env) balance(id string) int64 {
	e.t.Helper()
	acc, err := e.accounts.GetAccountByID(context.Background(), id)
	require.NoError(e.t, err)
	require.NotNil(e.t, acc)
	return acc.Credits
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestRegisterLoginAndBalance(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodPost, "/v1/auth/register", "", gin.H{
		"name": "Ada", "email": "Ada@Example.com", "password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	body := decode(t, w)
	token := body["token"].(string)
	assert.NotEmpty(t, token)
	assert.NotContains(t, w.Body.String(), "password")

	w = e.do(http.MethodGet, "/v1/credits", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"credits":10,"plan":"free"}`, w.Body.String())

	w = e.do(http.MethodPost, "/v1/auth/register", "", gin.H{
		"name": "Ada", "email": "ada@example.com", "password": "correct-horse",
	})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = e.do(http.MethodPost, "/v1/auth/login", "", gin.H{"email": "ada@example.com", "password": "correct-horse"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = e.do(http.MethodPost, "/v1/auth/login", "", gin.H{"email": "ada@example.com", "password": "wrong-horse"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = e.do(http.MethodPost, "/v1/auth/register", "", gin.H{"name": "x", "email": "not-an-email", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	e := newEnv(t)
	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodGet, "/v1/credits", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, e.do(http.MethodPost, "/v1/generate/text-to-image", "", gin.H{"prompt": "x"}).Code)
}

func TestTextToVideo_ChargesModelPrice(t *testing.T) {
	e := newEnv(t)
	id, token := e.account(10, models.RoleUser)

	w := e.do(http.MethodPost, "/v1/generate/text-to-video", token, gin.H{"prompt": "ocean waves", "model": "kling"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.EqualValues(t, 4, body["creditsUsed"])
	assert.EqualValues(t, 6, body["balance"])
	assert.Equal(t, "KLING", body["model"])
	video := body["video"].(map[string]any)
	assert.Equal(t, "https://cdn.test/v.mp4", video["url"])
	assert.Equal(t, "ocean-waves.mp4", video["downloadName"])
	assert.EqualValues(t, 5, video["duration"])
	assert.Equal(t, "16:9", video["aspectRatio"])

	assert.Equal(t, int64(6), e.balance(id))

	w = e.do(http.MethodGet, "/v1/credits/usage", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	usage := decode(t, w)["usage"].([]any)
	require.Len(t, usage, 1)
	assert.Equal(t, "TEXT_TO_VIDEO_KLING", usage[0].(map[string]any)["operation"])

	w = e.do(http.MethodGet, "/v1/gallery?type=video", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["assets"], 1)
}

func TestGenerate_InsufficientCreditsSkipsProvider(t *testing.T) {
	e := newEnv(t)
	id, token := e.account(3, models.RoleUser)

	w := e.do(http.MethodPost, "/v1/generate/text-to-video", token, gin.H{"prompt": "x", "model": "KLING"})
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.EqualValues(t, 4, decode(t, w)["required"])
	assert.Zero(t, e.fal.calls.Load())
	assert.Equal(t, int64(3), e.balance(id))
}

func TestGenerate_ProviderFailureKeepsDebit(t *testing.T) {
	e := newEnv(t)
	e.fal.err = &fal.ProviderError{Endpoint: "fal-ai/qwen-image-edit", Status: 500, Body: "boom"}
	id, token := e.account(10, models.RoleUser)

	w := e.do(http.MethodPost, "/v1/generate/image-edit", token, gin.H{
		"imageUrl": "https://cdn.test/in.png", "prompt": "make it blue",
	})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.EqualValues(t, 2, decode(t, w)["creditsUsed"])
	assert.EqualValues(t, 1, e.fal.calls.Load())
	assert.Equal(t, int64(8), e.balance(id))

	w = e.do(http.MethodGet, "/v1/gallery", token, nil)
	assert.Empty(t, decode(t, w)["assets"])
}

func TestGenerate_UnknownModelIsNotCharged(t *testing.T) {
	e := newEnv(t)
	id, token := e.account(10, models.RoleUser)

	w := e.do(http.MethodPost, "/v1/generate/text-to-video", token, gin.H{"prompt": "x", "model": "WAN_I2V"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = e.do(http.MethodPost, "/v1/generate/text-to-video", token, gin.H{"prompt": "x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	assert.Equal(t, int64(10), e.balance(id))
	assert.Zero(t, e.fal.calls.Load())
}

func TestTextToImage_ChargesPerImage(t *testing.T) {
	e := newEnv(t)
	id, token := e.account(10, models.RoleUser)

	w := e.do(http.MethodPost, "/v1/generate/text-to-image", token, gin.H{"prompt": "a red fox", "numImages": 3})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.EqualValues(t, 3, body["creditsUsed"])
	assert.Len(t, body["images"], 3)
	assert.Equal(t, int64(7), e.balance(id))

	w = e.do(http.MethodPost, "/v1/generate/text-to-image", token, gin.H{"prompt": "a red fox", "numImages": 5})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBatch_ChargesPerItem(t *testing.T) {
	e := newEnv(t)
	id, token := e.account(5, models.RoleUser)

	w := e.do(http.MethodPost, "/v1/generate/batch", token, gin.H{
		"action":    "background-removal",
		"imageUrls": []string{"https://cdn.test/a.png", "https://cdn.test/b.png", "https://cdn.test/c.png"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	body := decode(t, w)
	assert.EqualValues(t, 3, body["creditsUsed"])
	assert.Len(t, body["images"], 3)
	assert.Empty(t, body["failed"])
	assert.EqualValues(t, 3, e.fal.calls.Load())
	assert.Equal(t, int64(2), e.balance(id))

	w = e.do(http.MethodPost, "/v1/generate/batch", token, gin.H{
		"action":    "upscale",
		"imageUrls": []string{"https://cdn.test/a.png", "https://cdn.test/b.png", "https://cdn.test/c.png"},
	})
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.EqualValues(t, 3, e.fal.calls.Load())
	assert.Equal(t, int64(2), e.balance(id))
}

func TestBatch_Validation(t *testing.T) {
	e := newEnv(t)
	id, token := e.account(5, models.RoleUser)

	for _, body := range []gin.H{
		{"action": "upscale"},
		{"action": "upscale", "imageUrls": []string{}},
		{"action": "transcode", "imageUrls": []string{"https://cdn.test/a.png"}},
		{"action": "upscale", "imageUrls": []string{"not a url"}},
	} {
		w := e.do(http.MethodPost, "/v1/generate/batch", token, body)
		assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	}
	assert.Equal(t, int64(5), e.balance(id))
}

func TestBatch_AllItemsFailKeepsDebit(t *testing.T) {
	e := newEnv(t)
	e.fal.err = &fal.ProviderError{Endpoint: "fal-ai/esrgan", Status: 500, Body: "boom"}
	id, token := e.account(5, models.RoleUser)

	w := e.do(http.MethodPost, "/v1/generate/batch", token, gin.H{
		"action":    "upscale",
		"imageUrls": []string{"https://cdn.test/a.png", "https://cdn.test/b.png"},
	})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Len(t, decode(t, w)["failed"], 2)
	assert.Equal(t, int64(3), e.balance(id))
}

func TestGenerate_EndToEndScenario(t *testing.T) {
	e := newEnv(t)
	id, token := e.account(10, models.RoleUser)

	for i := 0; i < 3; i++ {
		w := e.do(http.MethodPost, "/v1/generate/text-to-image", token, gin.H{"prompt": "fox"})
		require.Equal(t, http.StatusOK, w.Code)
	}
	assert.Equal(t, int64(7), e.balance(id))

	w := e.do(http.MethodPost, "/v1/generate/text-to-video", token, gin.H{"prompt": "fox", "model": "KLING"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, int64(3), e.balance(id))

	w = e.do(http.MethodPost, "/v1/generate/text-to-video", token, gin.H{"prompt": "fox", "model": "KLING"})
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	assert.Equal(t, int64(3), e.balance(id))
}

func TestGenerate_WithoutProvider(t *testing.T) {
	e := newEnv(t)
	e.app.Fal = nil
	id, token := e.account(10, models.RoleUser)

	w := e.do(http.MethodPost, "/v1/generate/upscale", token, gin.H{"imageUrl": "https://cdn.test/a.png"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, int64(10), e.balance(id))
}

func TestAdminAddCredits(t *testing.T) {
	e := newEnv(t)
	userID, userToken := e.account(0, models.RoleUser)
	_, adminToken := e.account(0, models.RoleAdmin)

	path := "/v1/admin/accounts/" + userID + "/credits"

	assert.Equal(t, http.StatusForbidden, e.do(http.MethodPost, path, userToken, gin.H{"amount": 50}).Code)
	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodPost, path, adminToken, gin.H{"amount": 0}).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodPost, "/v1/admin/accounts/missing/credits", adminToken, gin.H{"amount": 5}).Code)

	w := e.do(http.MethodPost, path, adminToken, gin.H{"amount": 50})
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 50, decode(t, w)["credits"])
	assert.Equal(t, int64(50), e.balance(userID))
}

func TestEnhancePrompt(t *testing.T) {
	e := newEnv(t)
	id, token := e.account(2, models.RoleUser)

	w := e.do(http.MethodPost, "/v1/assist/prompt", token, gin.H{"prompt": "a fox"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	e.app.Assist = fakeEnhancer{}
	w = e.do(http.MethodPost, "/v1/assist/prompt", token, gin.H{"prompt": "a fox", "kind": "video"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "a fox, cinematic lighting", decode(t, w)["prompt"])
	assert.Equal(t, int64(1), e.balance(id))

	e.app.Assist = fakeEnhancer{err: errors.New("quota")}
	w = e.do(http.MethodPost, "/v1/assist/prompt", token, gin.H{"prompt": "a fox"})
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, int64(0), e.balance(id))

	w = e.do(http.MethodPost, "/v1/assist/prompt", token, gin.H{"prompt": "a fox"})
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
}

func TestGallery_OwnershipAndDelete(t *testing.T) {
	e := newEnv(t)
	_, owner := e.account(10, models.RoleUser)
	_, other := e.account(10, models.RoleUser)

	w := e.do(http.MethodPost, "/v1/generate/background-removal", owner, gin.H{"imageUrl": "https://cdn.test/a.png"})
	require.Equal(t, http.StatusOK, w.Code)
	assetID := decode(t, w)["images"].([]any)[0].(map[string]any)["id"].(string)

	assert.Equal(t, http.StatusOK, e.do(http.MethodGet, "/v1/gallery/"+assetID, owner, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/v1/gallery/"+assetID, other, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodDelete, "/v1/gallery/"+assetID, other, nil).Code)
	assert.Equal(t, http.StatusOK, e.do(http.MethodDelete, "/v1/gallery/"+assetID, owner, nil).Code)
	assert.Equal(t, http.StatusNotFound, e.do(http.MethodGet, "/v1/gallery/"+assetID, owner, nil).Code)

	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, "/v1/gallery?type=audio", owner, nil).Code)
}

func TestDashboardStats(t *testing.T) {
	e := newEnv(t)
	_, token := e.account(20, models.RoleUser)

	require.Equal(t, http.StatusOK, e.do(http.MethodPost, "/v1/generate/text-to-image", token, gin.H{"prompt": "a", "numImages": 2}).Code)
	require.Equal(t, http.StatusOK, e.do(http.MethodPost, "/v1/generate/text-to-video", token, gin.H{"prompt": "b", "model": "LUMA"}).Code)

	w := e.do(http.MethodGet, "/v1/dashboard/stats", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"credits":16,"plan":"free","images":2,"videos":1,"creditsSpent30d":4}`, w.Body.String())
}

func TestCatalogRoutes(t *testing.T) {
	e := newEnv(t)

	w := e.do(http.MethodGet, "/v1/models?kind=text-to-video", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	costs := map[string]float64{}
	for _, m := range decode(t, w)["models"].([]any) {
		entry := m.(map[string]any)
		costs[entry["key"].(string)] = entry["creditCost"].(float64)
	}
	assert.Equal(t, map[string]float64{"HAILUO": 3, "KLING": 4, "LUMA": 2, "WAN_T2V": 3}, costs)

	assert.Equal(t, http.StatusBadRequest, e.do(http.MethodGet, "/v1/models?kind=audio", "", nil).Code)

	w = e.do(http.MethodGet, "/v1/billing/plans", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["packages"], 3)

	w = e.do(http.MethodGet, "/v1/credits/costs", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "TEXT_TO_VIDEO")
}

func TestUploadImage(t *testing.T) {
	e := newEnv(t)
	_, token := e.account(0, models.RoleUser)

	upload := func(name string) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		part, err := mw.CreateFormFile("file", name)
		require.NoError(t, err)
		_, _ = part.Write([]byte("\x89PNG fake"))
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/v1/uploads", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		e.router.ServeHTTP(w, req)
		return w
	}

	w := upload("photo.PNG")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	url := decode(t, w)["url"].(string)
	assert.Regexp(t, `^http://api\.test/uploads/[0-9a-f-]{36}\.png$`, url)

	assert.Equal(t, http.StatusBadRequest, upload("script.sh").Code)
}
