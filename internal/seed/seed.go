// Package seed provides helpers to create test and demo data for the
// application database. These helpers are intended for development and
// testing only.
package seed

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"mercadito/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// DemoPassword is the plaintext password every seeded user gets.
const DemoPassword = "demo123456"

var categorias = []string{
	"electronica", "hogar", "ropa", "deportes", "vehiculos",
	"juguetes", "libros", "muebles", "otros",
}

// Seeder populates the database with demo marketplace data.
type Seeder struct {
	db *gorm.DB
}

// NewSeeder creates a Seeder bound to the provided Gorm DB.
func NewSeeder(db *gorm.DB) *Seeder {
	gofakeit.Seed(time.Now().UnixNano())
	return &Seeder{db: db}
}

// ClearAll wipes every seeded table, children first.
func (s *Seeder) ClearAll() error {
	log.Println("Clearing existing data...")
	for _, model := range []any{
		&models.Favorite{}, &models.PostImage{}, &models.Post{}, &models.User{},
	} {
		if err := s.db.Where("1 = 1").Delete(model).Error; err != nil {
			return err
		}
	}
	return nil
}

// CreateUser persists one fake user with the demo password.
func (s *Seeder) CreateUser() (*models.User, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(DemoPassword), 10)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		Email:     gofakeit.Email(),
		Password:  string(hashed),
		Nombre:    gofakeit.Name(),
		Telefono:  gofakeit.Phone(),
		AvatarURL: fmt.Sprintf("https://i.pravatar.cc/150?u=%s", gofakeit.UUID()),
	}
	if err := s.db.Create(user).Error; err != nil {
		return nil, err
	}
	return user, nil
}

// CreatePost persists one fake listing with 1-4 images for the user.
func (s *Seeder) CreatePost(user *models.User) (*models.Post, error) {
	estado := models.EstadoUsado
	if gofakeit.Bool() {
		estado = models.EstadoNuevo
	}

	post := &models.Post{
		UserID:      user.ID,
		Titulo:      gofakeit.ProductName(),
		Descripcion: gofakeit.Paragraph(1, 3, 8, " "),
		Precio:      gofakeit.Price(5, 2000),
		Categoria:   categorias[rand.Intn(len(categorias))],
		Estado:      estado,
		Ubicacion:   gofakeit.City(),
		Activo:      rand.Intn(10) > 0, // roughly one in ten inactive
		CreatedAt:   gofakeit.DateRange(time.Now().AddDate(0, -3, 0), time.Now()),
	}
	if err := s.db.Create(post).Error; err != nil {
		return nil, err
	}

	numImages := 1 + rand.Intn(4)
	for i := 0; i < numImages; i++ {
		img := models.PostImage{
			PostID:      post.ID,
			ImageURL:    fmt.Sprintf("https://picsum.photos/seed/%s/800/600", gofakeit.UUID()),
			IsPrincipal: i == 0,
			Orden:       i + 1,
		}
		if err := s.db.Create(&img).Error; err != nil {
			return nil, err
		}
		post.Imagenes = append(post.Imagenes, img)
	}
	return post, nil
}

// Run seeds the requested volume of users, posts and favorites.
func (s *Seeder) Run(numUsers, numPosts int) error {
	if numPosts > 0 && numUsers < 1 {
		return fmt.Errorf("cannot seed %d posts without users", numPosts)
	}

	users := make([]*models.User, 0, numUsers)
	for i := 0; i < numUsers; i++ {
		user, err := s.CreateUser()
		if err != nil {
			return fmt.Errorf("seeding user: %w", err)
		}
		users = append(users, user)
	}
	log.Printf("Seeded %d users (password %q)", len(users), DemoPassword)

	posts := make([]*models.Post, 0, numPosts)
	for i := 0; i < numPosts; i++ {
		owner := users[rand.Intn(len(users))]
		post, err := s.CreatePost(owner)
		if err != nil {
			return fmt.Errorf("seeding post: %w", err)
		}
		posts = append(posts, post)
	}
	log.Printf("Seeded %d posts", len(posts))

	// Sprinkle favorites, skipping self-favorites and duplicates.
	favorites := 0
	for _, user := range users {
		for i := 0; i < rand.Intn(6); i++ {
			post := posts[rand.Intn(len(posts))]
			if post.UserID == user.ID || !post.Activo {
				continue
			}
			fav := models.Favorite{UserID: user.ID, PostID: post.ID}
			if err := s.db.Where("user_id = ? AND post_id = ?", user.ID, post.ID).
				FirstOrCreate(&fav).Error; err != nil {
				return fmt.Errorf("seeding favorite: %w", err)
			}
			favorites++
		}
	}
	log.Printf("Seeded %d favorites", favorites)

	return nil
}
