package providers

import "time"

// Category is a provider's trade.
type Category string

const (
	CategoryPlumber        Category = "Plumber"
	CategoryElectrician    Category = "Electrician"
	CategoryCarpenter      Category = "Carpenter"
	CategoryPainter        Category = "Painter"
	CategoryGeneralService Category = "General Service"
)

// Categories lists every accepted category in display order.
func Categories() []Category {
	return []Category{
		CategoryPlumber,
		CategoryElectrician,
		CategoryCarpenter,
		CategoryPainter,
		CategoryGeneralService,
	}
}

func (c Category) Valid() bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}

// Profile is the public part of a provider account.
type Profile struct {
	Description string `json:"description" bson:"description"`
	Phone       string `json:"phone" bson:"phone"`
	// Email is the login email as of registration; it is not kept in sync.
	Email string `json:"email" bson:"email"`
}

// Review is owned by exactly one provider and never changes once stored.
type Review struct {
	ID        string    `json:"_id" bson:"_id"`
	UserName  string    `json:"userName" bson:"userName"`
	Rating    int       `json:"rating" bson:"rating"`
	Comment   string    `json:"comment" bson:"comment"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// Provider is a service professional account with its review history.
type Provider struct {
	ID               string    `json:"_id" bson:"_id"`
	Name             string    `json:"name" bson:"name"`
	Email            string    `json:"email" bson:"email"`
	PasswordHash     string    `json:"-" bson:"passwordHash"`
	ServiceCategory  Category  `json:"serviceCategory" bson:"serviceCategory"`
	Location         string    `json:"location" bson:"location"`
	EmergencyService bool      `json:"emergencyService" bson:"emergencyService"`
	Profile          Profile   `json:"profile" bson:"profile"`
	Reviews          []Review  `json:"reviews" bson:"reviews"`
	CreatedAt        time.Time `json:"createdAt" bson:"createdAt"`
}

// View is the representation returned by the API: the stored document plus
// the derived rating fields.
type View struct {
	*Provider
	AverageRating float64 `json:"averageRating"`
	ReviewCount   int     `json:"reviewCount"`
}

// NewView derives the rating fields from p's reviews.
func NewView(p *Provider) View {
	if p.Reviews == nil {
		p.Reviews = []Review{}
	}
	return View{
		Provider:      p,
		AverageRating: AverageRating(p.Reviews),
		ReviewCount:   len(p.Reviews),
	}
}

// NewViews maps NewView over ps, always returning a non-nil slice.
func NewViews(ps []*Provider) []View {
	out := make([]View, 0, len(ps))
	for _, p := range ps {
		out = append(out, NewView(p))
	}
	return out
}

// AverageRating is the arithmetic mean of the ratings, 0 when there are none.
func AverageRating(reviews []Review) float64 {
	if len(reviews) == 0 {
		return 0
	}
	sum := 0
	for _, r := range reviews {
		sum += r.Rating
	}
	return float64(sum) / float64(len(reviews))
}

// RegisterRequest is the body for POST /api/provider/register.
type RegisterRequest struct {
	Name             string   `json:"name"`
	Email            string   `json:"email"`
	Password         string   `json:"password"`
	ServiceCategory  Category `json:"serviceCategory"`
	Location         string   `json:"location"`
	EmergencyService bool     `json:"emergencyService"`
	Profile          struct {
		Description string `json:"description"`
		Phone       string `json:"phone"`
	} `json:"profile"`
}

// LoginRequest is the body for POST /api/provider/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Identity is the minimal projection returned on login.
type Identity struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// LoginResponse is returned by POST /api/provider/login.
type LoginResponse struct {
	Message  string   `json:"message"`
	Provider Identity `json:"provider"`
	Token    string   `json:"token"`
}

// ReviewRequest is the body for POST /api/providers/{id}/reviews. Rating is
// decoded as a number so 4.0 is accepted; it must still be a whole number.
type ReviewRequest struct {
	UserName string  `json:"userName"`
	Rating   float64 `json:"rating"`
	Comment  string  `json:"comment"`
}
