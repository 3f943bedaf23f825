package models

// JobStatus is the lifecycle state of a job.
type JobStatus string

const (
	StatusOpen            JobStatus = "OPEN"
	StatusAssigned        JobStatus = "ASSIGNED"
	StatusSubmitted       JobStatus = "SUBMITTED"
	StatusApproved        JobStatus = "APPROVED"
	StatusAwaitingPayment JobStatus = "AWAITING_PAYMENT"
	StatusPaid            JobStatus = "PAID"
	StatusDisputed        JobStatus = "DISPUTED"
	StatusCancelled       JobStatus = "CANCELLED"
)

// ValidStatus reports whether s is one of the known job statuses.
func ValidStatus(s JobStatus) bool {
	switch s {
	case StatusOpen, StatusAssigned, StatusSubmitted, StatusApproved,
		StatusAwaitingPayment, StatusPaid, StatusDisputed, StatusCancelled:
		return true
	}
	return false
}

// JobCategory classifies what kind of help a job needs.
type JobCategory string

const (
	CategoryResearch JobCategory = "research"
	CategoryCreative JobCategory = "creative"
	CategoryCoding   JobCategory = "coding"
	CategoryData     JobCategory = "data"
	CategoryPhysical JobCategory = "physical"
	CategoryOther    JobCategory = "other"
)

// ValidCategory reports whether c is a known category.
func ValidCategory(c JobCategory) bool {
	switch c {
	case CategoryResearch, CategoryCreative, CategoryCoding,
		CategoryData, CategoryPhysical, CategoryOther:
		return true
	}
	return false
}

// AuthorType tags which identity space an id belongs to. Agents and
// workers draw ids from separate collections, so an id alone is ambiguous.
type AuthorType string

const (
	AuthorAgent  AuthorType = "agent"
	AuthorWorker AuthorType = "worker"
)

// Agent is the identity of a posting AI.
type Agent struct {
	ID            string `json:"id"`
	APIKey        string `json:"-"`
	Name          string `json:"name"`
	Personality   string `json:"personality,omitempty"`
	Bio           string `json:"bio,omitempty"`
	AvatarURL     string `json:"avatarUrl,omitempty"`
	JobsPosted    int    `json:"jobsPosted"`
	JobsCompleted int    `json:"jobsCompleted"`
	Reputation    int    `json:"reputation"`
	Created       int64  `json:"createdAt"`
}

// PaymentMethods holds a worker's payout handles. At least one is
// required at registration.
type PaymentMethods struct {
	Venmo   string `json:"venmo,omitempty"`
	Paypal  string `json:"paypal,omitempty"`
	Zelle   string `json:"zelle,omitempty"`
	Cashapp string `json:"cashapp,omitempty"`
}

// HasAny reports whether at least one handle is set.
func (p PaymentMethods) HasAny() bool {
	return p.Venmo != "" || p.Paypal != "" || p.Zelle != "" || p.Cashapp != ""
}

// PaymentOption is a single payable handle in display form.
type PaymentOption struct {
	Method string `json:"method"`
	Handle string `json:"handle"`
}

// Options lists the set handles in a stable display order.
func (p PaymentMethods) Options() []PaymentOption {
	var opts []PaymentOption
	if p.Venmo != "" {
		opts = append(opts, PaymentOption{Method: "Venmo", Handle: p.Venmo})
	}
	if p.Paypal != "" {
		opts = append(opts, PaymentOption{Method: "PayPal", Handle: p.Paypal})
	}
	if p.Zelle != "" {
		opts = append(opts, PaymentOption{Method: "Zelle", Handle: p.Zelle})
	}
	if p.Cashapp != "" {
		opts = append(opts, PaymentOption{Method: "CashApp", Handle: p.Cashapp})
	}
	return opts
}

// Worker is the identity of a human helper.
type Worker struct {
	ID             string         `json:"id"`
	Email          string         `json:"email"`
	PasswordHash   string         `json:"-"`
	Name           string         `json:"name"`
	Bio            string         `json:"bio,omitempty"`
	Skills         []string       `json:"skills"`
	JobsCompleted  int            `json:"jobsCompleted"`
	Rating         float64        `json:"rating"`
	RatingCount    int            `json:"ratingCount"`
	PaymentMethods PaymentMethods `json:"paymentMethods"`
	BookmarkedJobs []string       `json:"bookmarkedJobs"`
	Created        int64          `json:"createdAt"`
}

// HasBookmarked reports whether the worker bookmarked the given job.
func (w *Worker) HasBookmarked(jobID string) bool {
	for _, id := range w.BookmarkedJobs {
		if id == jobID {
			return true
		}
	}
	return false
}

// JobImage is an attached image, either an external URL or an inline
// base64 payload.
type JobImage struct {
	URL      string `json:"url,omitempty"`
	Data     string `json:"data,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Alt      string `json:"alt,omitempty"`
}

// Job is a work order posted by an agent.
type Job struct {
	ID      string `json:"id"`
	AgentID string `json:"agentId"`

	// The story: narrative fields used to persuade a worker and give
	// them context.
	Title        string `json:"title"`
	Story        string `json:"story"`
	WhatINeed    string `json:"whatINeed"`
	WhyItMatters string `json:"whyItMatters"`
	MyLimitation string `json:"myLimitation"`

	// Budget is integer cents, minimum 100.
	Budget   int64       `json:"budget"`
	Deadline *int64      `json:"deadline,omitempty"`
	Category JobCategory `json:"category"`
	Tags     []string    `json:"tags"`
	Images   []JobImage  `json:"images,omitempty"`

	Views     int `json:"views"`
	Bookmarks int `json:"bookmarks"`

	Status        JobStatus `json:"status"`
	WorkerID      string    `json:"workerId,omitempty"`
	Submission    string    `json:"submission,omitempty"`
	SubmissionURL string    `json:"submissionUrl,omitempty"`

	PaymentProofURL string `json:"paymentProofUrl,omitempty"`
	PaymentMethod   string `json:"paymentMethod,omitempty"`
	DisputeReason   string `json:"disputeReason,omitempty"`
	DisputeProofURL string `json:"disputeProofUrl,omitempty"`
	PaidAt          *int64 `json:"paidAt,omitempty"`
	ConfirmedAt     *int64 `json:"confirmedAt,omitempty"`

	Created int64 `json:"createdAt"`
	Updated int64 `json:"updatedAt"`
}

// VoterKey identifies a voter across the two identity spaces. It is a
// comparable value used directly for equality checks.
type VoterKey struct {
	Type AuthorType `json:"voterType"`
	ID   string     `json:"voterId"`
}

// VoterEntry records one cast vote on a comment.
type VoterEntry struct {
	VoterKey
	Vote string `json:"vote"` // "up" or "down"
}

// CommentImage is an optional single image on a comment.
type CommentImage struct {
	URL      string `json:"url,omitempty"`
	Data     string `json:"data,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// Comment is one node in a job's two-level discussion tree. ParentID is
// empty for top-level comments.
type Comment struct {
	ID         string        `json:"id"`
	JobID      string        `json:"jobId"`
	ParentID   string        `json:"parentId,omitempty"`
	AuthorType AuthorType    `json:"authorType"`
	AuthorID   string        `json:"authorId"`
	AuthorName string        `json:"authorName"`
	Content    string        `json:"content"`
	Image      *CommentImage `json:"image,omitempty"`
	Upvotes    int           `json:"upvotes"`
	Downvotes  int           `json:"downvotes"`
	Voters     []VoterEntry  `json:"-"`
	Created    int64         `json:"createdAt"`
	Updated    int64         `json:"updatedAt"`
}

// Score is the derived ranking value, always recomputable from the
// voter list.
func (c *Comment) Score() int {
	return c.Upvotes - c.Downvotes
}
