// Package diary holds the AnglerDiary API models and typed endpoint
// descriptors.
package diary

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// FishingMethod is a fishing technique. The wire values are the Korean
// labels the API stores.
type FishingMethod string

const (
	MethodLure         FishingMethod = "루어"
	MethodOneTwo       FishingMethod = "원투"
	MethodFloatFishing FishingMethod = "찌낚시"
	MethodBoatFishing  FishingMethod = "배낚시"
	MethodRockFishing  FishingMethod = "갯바위"
)

var fishingMethods = []struct {
	method  FishingMethod
	slug    string
	english string
}{
	{MethodLure, "lure", "Lure Fishing"},
	{MethodOneTwo, "one-two", "One-Two Fishing"},
	{MethodFloatFishing, "float", "Float Fishing"},
	{MethodBoatFishing, "boat", "Boat Fishing"},
	{MethodRockFishing, "rock", "Rock Fishing"},
}

// FishingMethods returns all methods in display order.
func FishingMethods() []FishingMethod {
	out := make([]FishingMethod, len(fishingMethods))
	for i, m := range fishingMethods {
		out[i] = m.method
	}
	return out
}

// ParseFishingMethod accepts a slug ("lure"), the English name or the wire
// value.
func ParseFishingMethod(s string) (FishingMethod, error) {
	s = strings.TrimSpace(s)
	for _, m := range fishingMethods {
		if strings.EqualFold(s, m.slug) || strings.EqualFold(s, m.english) || s == string(m.method) {
			return m.method, nil
		}
	}
	slugs := make([]string, len(fishingMethods))
	for i, m := range fishingMethods {
		slugs[i] = m.slug
	}
	return "", fmt.Errorf("unknown fishing method %q (use %s)", s, strings.Join(slugs, ", "))
}

// Slug returns the command-line name of the method.
func (m FishingMethod) Slug() string {
	for _, e := range fishingMethods {
		if e.method == m {
			return e.slug
		}
	}
	return string(m)
}

// EnglishName returns the English display name.
func (m FishingMethod) EnglishName() string {
	for _, e := range fishingMethods {
		if e.method == m {
			return e.english
		}
	}
	return string(m)
}

// ExperienceLevel is an angler's self-reported skill.
type ExperienceLevel string

const (
	LevelNovice       ExperienceLevel = "입문자"
	LevelBeginner     ExperienceLevel = "초급자"
	LevelIntermediate ExperienceLevel = "중급자"
	LevelAdvanced     ExperienceLevel = "상급자"
	LevelMaster       ExperienceLevel = "마스터"
)

// EnglishName returns the English display name.
func (l ExperienceLevel) EnglishName() string {
	switch l {
	case LevelNovice:
		return "Novice"
	case LevelBeginner:
		return "Beginner"
	case LevelIntermediate:
		return "Intermediate"
	case LevelAdvanced:
		return "Advanced"
	case LevelMaster:
		return "Master"
	default:
		return string(l)
	}
}

// User is an AnglerDiary account.
type User struct {
	ID                   uuid.UUID       `json:"id"`
	Email                string          `json:"email"`
	Nickname             string          `json:"nickname"`
	PhoneNumber          *string         `json:"phoneNumber,omitempty"`
	ProfileImageURL      string          `json:"profileImageURL,omitempty"`
	SignUpDate           time.Time       `json:"signUpDate"`
	ExperienceLevel      ExperienceLevel `json:"experienceLevel"`
	PreferredMethods     []FishingMethod `json:"preferredMethods,omitempty"`
	FavoriteFishingSpots []FishingPoint  `json:"favoriteFishingSpots,omitempty"`
	Equipments           []Equipment     `json:"equipments,omitempty"`
	Achievements         []Achievement   `json:"achievements,omitempty"`
}

// Achievement is a milestone shown on a profile.
type Achievement struct {
	ID           uuid.UUID `json:"id"`
	Title        string    `json:"title"`
	Details      string    `json:"details"`
	DateAchieved time.Time `json:"dateAchieved"`
}

// FishSpecies describes a fish.
type FishSpecies struct {
	ID                   uuid.UUID       `json:"id"`
	Name                 string          `json:"name"`
	ScientificName       string          `json:"scientificName,omitempty"`
	Habitat              string          `json:"habitat,omitempty"`
	Memo                 string          `json:"memo,omitempty"`
	ImageURL             string          `json:"imageURL,omitempty"`
	CommonFishingMethods []FishingMethod `json:"commonFishingMethods,omitempty"`
	BestSeason           string          `json:"bestSeason,omitempty"`
}

// CatchRecord is one logged catch.
type CatchRecord struct {
	ID          uuid.UUID     `json:"id"`
	FishSpecies FishSpecies   `json:"fishSpecies"`
	Weight      *float64      `json:"weight,omitempty"`
	Length      *float64      `json:"length,omitempty"`
	Location    string        `json:"location"`
	Time        time.Time     `json:"time"`
	Photo       string        `json:"photo,omitempty"`
	Method      FishingMethod `json:"method"`
	UserID      uuid.UUID     `json:"userId"`
	ScheduleID  *uuid.UUID    `json:"scheduleId,omitempty"`
}

// Equipment is a piece of tackle owned by a user.
type Equipment struct {
	ID             uuid.UUID  `json:"id"`
	Name           string     `json:"name"`
	Brand          string     `json:"brand"`
	Model          string     `json:"model"`
	PurchaseDate   *time.Time `json:"purchaseDate,omitempty"`
	UsageFrequency int        `json:"usageFrequency"`
}

// FishingPoint is a fishing spot.
type FishingPoint struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Location   string    `json:"location"`
	Conditions string    `json:"conditions"`
	FishTypes  []string  `json:"fishTypes"`
}

// Photo is an uploaded image.
type Photo struct {
	ID         uuid.UUID `json:"id"`
	ImageName  string    `json:"imageName"`
	URL        string    `json:"url,omitempty"`
	UploadDate time.Time `json:"uploadDate"`
	Likes      int       `json:"likes"`
}

// Session is the result of a login.
type Session struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt,omitzero"`
	User      User      `json:"user"`
}
