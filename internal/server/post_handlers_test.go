package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"mercadito/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// multipartPostRequest builds a POST /api/posts request with the given
// form fields and one file part per image name.
func multipartPostRequest(t *testing.T, fields map[string]string, images []string, token string) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for _, name := range images {
		part, err := w.CreateFormFile("imagenes", name)
		require.NoError(t, err)
		_, err = part.Write([]byte("fake image bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/posts", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func validPostFields() map[string]string {
	return map[string]string{
		"titulo":      "Bicicleta de montana",
		"descripcion": "Bicicleta rodada 26 en excelente estado, poco uso.",
		"precio":      "1500.50",
		"categoria":   "deportes",
		"estado":      "usado",
		"ubicacion":   "Centro",
	}
}

// seedPost inserts a post directly, bypassing the upload path.
func seedPost(t *testing.T, db *gorm.DB, userID uint, mutate func(*models.Post)) *models.Post {
	t.Helper()

	post := &models.Post{
		UserID:      userID,
		Titulo:      "Mesa de madera",
		Descripcion: "Mesa de comedor para seis personas, madera maciza.",
		Precio:      800,
		Categoria:   "hogar",
		Estado:      models.EstadoUsado,
		Activo:      true,
	}
	if mutate != nil {
		mutate(post)
	}
	require.NoError(t, db.Create(post).Error)
	return post
}

func TestCreatePost(t *testing.T) {
	s, app, uploader := setupTestServer(t)
	_, token := registerUser(t, app, "seller@example.com")

	t.Run("Success with images", func(t *testing.T) {
		resp, err := app.Test(multipartPostRequest(t, validPostFields(), []string{"front.jpg", "back.jpg"}, token))
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		env := decodeEnvelope(t, resp)
		var post models.Post
		require.NoError(t, json.Unmarshal(env.Data, &post))
		require.Len(t, post.Imagenes, 2)
		assert.True(t, post.Imagenes[0].IsPrincipal)
		assert.Equal(t, 1, post.Imagenes[0].Orden)
		assert.False(t, post.Imagenes[1].IsPrincipal)
		assert.Equal(t, 2, post.Imagenes[1].Orden)
		assert.Len(t, uploader.uploads, 2)

		var stored models.Post
		require.NoError(t, s.db.First(&stored, post.ID).Error)
		assert.True(t, stored.Activo)
	})

	t.Run("Upload failure rolls back", func(t *testing.T) {
		var postsBefore, imagesBefore int64
		require.NoError(t, s.db.Model(&models.Post{}).Count(&postsBefore).Error)
		require.NoError(t, s.db.Model(&models.PostImage{}).Count(&imagesBefore).Error)

		uploader.failAt = len(uploader.uploads) + 2

		resp, err := app.Test(multipartPostRequest(t, validPostFields(), []string{"a.jpg", "b.jpg"}, token))
		require.NoError(t, err)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)

		var postsAfter, imagesAfter int64
		require.NoError(t, s.db.Model(&models.Post{}).Count(&postsAfter).Error)
		require.NoError(t, s.db.Model(&models.PostImage{}).Count(&imagesAfter).Error)
		assert.Equal(t, postsBefore, postsAfter)
		assert.Equal(t, imagesBefore, imagesAfter)

		uploader.failAt = 0
	})

	t.Run("Requires auth", func(t *testing.T) {
		resp, err := app.Test(multipartPostRequest(t, validPostFields(), nil, ""))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Validation", func(t *testing.T) {
		tests := []struct {
			name   string
			mutate func(map[string]string)
			field  string
		}{
			{"Short title", func(f map[string]string) { f["titulo"] = "Bici" }, "titulo"},
			{"Short description", func(f map[string]string) { f["descripcion"] = "corta" }, "descripcion"},
			{"Zero price", func(f map[string]string) { f["precio"] = "0" }, "precio"},
			{"Bad price", func(f map[string]string) { f["precio"] = "mucho" }, "precio"},
			{"Bad estado", func(f map[string]string) { f["estado"] = "roto" }, "estado"},
			{"Missing category", func(f map[string]string) { delete(f, "categoria") }, "categoria"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				fields := validPostFields()
				tt.mutate(fields)

				resp, err := app.Test(multipartPostRequest(t, fields, nil, token))
				require.NoError(t, err)
				assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

				env := decodeEnvelope(t, resp)
				require.NotNil(t, env.Error)
				assert.Equal(t, models.CodeValidationError, env.Error.Code)
				assert.Equal(t, tt.field, env.Error.Field)
			})
		}
	})
}

func TestGetPosts(t *testing.T) {
	s, app, _ := setupTestServer(t)
	sellerID, _ := registerUser(t, app, "lister@example.com")

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 15; i++ {
		n := i
		seedPost(t, s.db, sellerID, func(p *models.Post) {
			p.Titulo = fmt.Sprintf("Articulo numero %d", n)
			p.Precio = float64(100 * (n + 1))
			if n%2 == 0 {
				p.Categoria = "hogar"
			} else {
				p.Categoria = "deportes"
			}
			p.CreatedAt = base.Add(time.Duration(n) * time.Minute)
		})
	}
	// Inactive posts never show up in the public listing.
	seedPost(t, s.db, sellerID, func(p *models.Post) { p.Activo = false })

	getList := func(t *testing.T, target string) models.PostList {
		t.Helper()
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, target, nil))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		env := decodeEnvelope(t, resp)
		var list models.PostList
		require.NoError(t, json.Unmarshal(env.Data, &list))
		return list
	}

	t.Run("Pagination", func(t *testing.T) {
		list := getList(t, "/api/posts?page=2&limit=6")
		assert.Len(t, list.Posts, 6)
		assert.Equal(t, 2, list.Pagination.CurrentPage)
		assert.Equal(t, int64(15), list.Pagination.TotalPosts)
		assert.Equal(t, 3, list.Pagination.TotalPages)
		assert.Equal(t, 6, list.Pagination.PostsPerPage)
	})

	t.Run("Newest first", func(t *testing.T) {
		list := getList(t, "/api/posts?limit=3")
		require.Len(t, list.Posts, 3)
		assert.Equal(t, "Articulo numero 14", list.Posts[0].Titulo)
		assert.Equal(t, "Articulo numero 13", list.Posts[1].Titulo)
	})

	t.Run("Category filter drives the count", func(t *testing.T) {
		list := getList(t, "/api/posts?categoria=deportes&limit=5")
		assert.Equal(t, int64(7), list.Pagination.TotalPosts)
		assert.Equal(t, 2, list.Pagination.TotalPages)
		for _, p := range list.Posts {
			assert.Equal(t, "deportes", p.Categoria)
		}
	})

	t.Run("Price range", func(t *testing.T) {
		list := getList(t, "/api/posts?precio_min=400&precio_max=700&limit=20")
		assert.Equal(t, int64(4), list.Pagination.TotalPosts)
		for _, p := range list.Posts {
			assert.GreaterOrEqual(t, p.Precio, 400.0)
			assert.LessOrEqual(t, p.Precio, 700.0)
		}
	})
}

func TestGetPost(t *testing.T) {
	s, app, _ := setupTestServer(t)
	sellerID, _ := registerUser(t, app, "owner@example.com")
	_, viewerToken := registerUser(t, app, "viewer@example.com")

	post := seedPost(t, s.db, sellerID, nil)
	require.NoError(t, s.db.Create(&models.PostImage{
		PostID: post.ID, ImageURL: "https://images.test/main.jpg", IsPrincipal: true, Orden: 1,
	}).Error)

	t.Run("Anonymous", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(http.MethodGet, fmt.Sprintf("/api/posts/%d", post.ID), "", ""))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		env := decodeEnvelope(t, resp)
		var got models.Post
		require.NoError(t, json.Unmarshal(env.Data, &got))
		assert.Equal(t, post.Titulo, got.Titulo)
		assert.Equal(t, "https://images.test/main.jpg", got.ImagenPrincipal)
		assert.False(t, got.Favorito)
	})

	t.Run("Favorito flag for viewer", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(http.MethodPost, "/api/favorites",
			fmt.Sprintf(`{"post_id":%d}`, post.ID), viewerToken))
		require.NoError(t, err)
		require.Equal(t, http.StatusCreated, resp.StatusCode)

		resp, err = app.Test(jsonRequest(http.MethodGet, fmt.Sprintf("/api/posts/%d", post.ID), "", viewerToken))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		env := decodeEnvelope(t, resp)
		var got models.Post
		require.NoError(t, json.Unmarshal(env.Data, &got))
		assert.True(t, got.Favorito)
	})

	t.Run("Inactive hidden", func(t *testing.T) {
		hidden := seedPost(t, s.db, sellerID, func(p *models.Post) { p.Activo = false })

		resp, err := app.Test(jsonRequest(http.MethodGet, fmt.Sprintf("/api/posts/%d", hidden.ID), "", ""))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("Bad ID", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(http.MethodGet, "/api/posts/abc", "", ""))
		require.NoError(t, err)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestUpdatePost(t *testing.T) {
	s, app, _ := setupTestServer(t)
	ownerID, ownerToken := registerUser(t, app, "edit-owner@example.com")
	_, otherToken := registerUser(t, app, "edit-other@example.com")

	post := seedPost(t, s.db, ownerID, nil)

	t.Run("Partial update keeps omitted fields", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(http.MethodPut, fmt.Sprintf("/api/posts/%d", post.ID),
			`{"precio":950}`, ownerToken))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var stored models.Post
		require.NoError(t, s.db.First(&stored, post.ID).Error)
		assert.Equal(t, 950.0, stored.Precio)
		assert.Equal(t, post.Titulo, stored.Titulo)
		assert.Equal(t, post.Descripcion, stored.Descripcion)
	})

	t.Run("Deactivate", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(http.MethodPut, fmt.Sprintf("/api/posts/%d", post.ID),
			`{"activo":false}`, ownerToken))
		require.NoError(t, err)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var stored models.Post
		require.NoError(t, s.db.First(&stored, post.ID).Error)
		assert.False(t, stored.Activo)

		// The owner can still edit an inactive post.
		resp, err = app.Test(jsonRequest(http.MethodPut, fmt.Sprintf("/api/posts/%d", post.ID),
			`{"activo":true}`, ownerToken))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("Non-owner forbidden", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(http.MethodPut, fmt.Sprintf("/api/posts/%d", post.ID),
			`{"precio":1}`, otherToken))
		require.NoError(t, err)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)

		env := decodeEnvelope(t, resp)
		assert.Equal(t, models.CodeForbidden, env.Error.Code)
	})

	t.Run("Missing post", func(t *testing.T) {
		resp, err := app.Test(jsonRequest(http.MethodPut, "/api/posts/99999", `{"precio":1}`, ownerToken))
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestDeletePost(t *testing.T) {
	s, app, _ := setupTestServer(t)
	ownerID, ownerToken := registerUser(t, app, "del-owner@example.com")
	viewerID, _ := registerUser(t, app, "del-viewer@example.com")

	post := seedPost(t, s.db, ownerID, nil)
	require.NoError(t, s.db.Create(&models.PostImage{PostID: post.ID, ImageURL: "https://images.test/x.jpg", IsPrincipal: true, Orden: 1}).Error)
	require.NoError(t, s.db.Create(&models.Favorite{UserID: viewerID, PostID: post.ID}).Error)

	resp, err := app.Test(jsonRequest(http.MethodDelete, fmt.Sprintf("/api/posts/%d", post.ID), "", ownerToken))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var posts, images, favorites int64
	require.NoError(t, s.db.Model(&models.Post{}).Where("id = ?", post.ID).Count(&posts).Error)
	require.NoError(t, s.db.Model(&models.PostImage{}).Where("post_id = ?", post.ID).Count(&images).Error)
	require.NoError(t, s.db.Model(&models.Favorite{}).Where("post_id = ?", post.ID).Count(&favorites).Error)
	assert.Zero(t, posts)
	assert.Zero(t, images)
	assert.Zero(t, favorites)

	resp, err = app.Test(jsonRequest(http.MethodDelete, fmt.Sprintf("/api/posts/%d", post.ID), "", ownerToken))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestGetMyPosts(t *testing.T) {
	s, app, _ := setupTestServer(t)
	ownerID, ownerToken := registerUser(t, app, "mine@example.com")

	seedPost(t, s.db, ownerID, nil)
	seedPost(t, s.db, ownerID, func(p *models.Post) { p.Activo = false })

	resp, err := app.Test(jsonRequest(http.MethodGet, "/api/posts/mine", "", ownerToken))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	env := decodeEnvelope(t, resp)
	var data struct {
		Posts []models.Post `json:"posts"`
		Total int           `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &data))
	// Inactive posts stay visible to their owner.
	assert.Equal(t, 2, data.Total)
	assert.Len(t, data.Posts, 2)
}
