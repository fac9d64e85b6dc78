package model

import (
	"strings"
	"time"
)

// PublicUser is a reader account in the public store.
type PublicUser struct {
	ID                         string     `json:"id" bson:"_id"`
	Email                      string     `json:"email" bson:"email"`
	DisplayName                string     `json:"displayName" bson:"displayName"`
	AvatarURL                  string     `json:"avatarUrl,omitempty" bson:"avatarUrl,omitempty"`
	EmailVerified              bool       `json:"emailVerified" bson:"emailVerified"`
	OptInConfirmed             bool       `json:"optInConfirmed" bson:"optInConfirmed"`
	CreatedTimestamp           time.Time  `json:"createdTimestamp" bson:"createdTimestamp"`
	LastModifiedTimestamp      time.Time  `json:"lastModifiedTimestamp" bson:"lastModifiedTimestamp"`
	LastAuthenticatedTimestamp *time.Time `json:"lastAuthenticatedTimestamp,omitempty" bson:"lastAuthenticatedTimestamp,omitempty"`
}

// Subscription sources
const (
	SubSourceBlog        = "blog"
	SubSourceContactForm = "contact-form"
	SubSourceImport      = "import"
)

// EmailSubscriber is a mailing-list member. Its ID is the lower-cased email.
type EmailSubscriber struct {
	ID                    string     `json:"id" bson:"_id"`
	Email                 string     `json:"email" bson:"email"`
	FirstName             string     `json:"firstName" bson:"firstName"`
	LastSubSource         string     `json:"lastSubSource" bson:"lastSubSource"`
	SubscriptionSources   []string   `json:"subscriptionSources" bson:"subscriptionSources"`
	OptInConfirmed        bool       `json:"optInConfirmed" bson:"optInConfirmed"`
	OptInTimestamp        *time.Time `json:"optInTimestamp,omitempty" bson:"optInTimestamp,omitempty"`
	IntroEmailSent        bool       `json:"introEmailSent" bson:"introEmailSent"`
	SendgridContactID     string     `json:"sendgridContactId,omitempty" bson:"sendgridContactId,omitempty"`
	Unsubscribed          bool       `json:"unsubscribed" bson:"unsubscribed"`
	CreatedTimestamp      time.Time  `json:"createdTimestamp" bson:"createdTimestamp"`
	LastModifiedTimestamp time.Time  `json:"lastModifiedTimestamp" bson:"lastModifiedTimestamp"`
}

// SubscriberID is the document ID for an email address.
func SubscriberID(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// AddSource records source as the latest subscription source.
func (s *EmailSubscriber) AddSource(source string) {
	s.LastSubSource = source
	for _, existing := range s.SubscriptionSources {
		if existing == source {
			return
		}
	}
	s.SubscriptionSources = append(s.SubscriptionSources, source)
}

// ContactForm is a message submitted through the public contact page.
type ContactForm struct {
	ID               string    `json:"id" bson:"_id"`
	Name             string    `json:"name" bson:"name"`
	Email            string    `json:"email" bson:"email"`
	Message          string    `json:"message" bson:"message"`
	OptInSubscriber  bool      `json:"optInSubscriber" bson:"optInSubscriber"`
	Read             bool      `json:"read" bson:"read"`
	CreatedTimestamp time.Time `json:"createdTimestamp" bson:"createdTimestamp"`
}
