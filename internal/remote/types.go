package remote

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"Feedsync/internal/core/feeds"
)

// envelope wraps every response body of the remote service
type envelope struct {
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Code      int             `json:"code"`
	IsSuccess bool            `json:"isSuccess"`
}

func (e envelope) hasData() bool {
	trimmed := strings.TrimSpace(string(e.Data))
	return trimmed != "" && trimmed != "null"
}

type pageData struct {
	Stories []story `json:"storyInfo"`
	HasNext bool    `json:"hasNext"`
}

type story struct {
	StoryUUID  string        `json:"storyUUID"`
	CreatedAt  string        `json:"createdAt"`
	UpdatedAt  string        `json:"updatedAt"`
	Empathy    empathyCounts `json:"emotionOfEmpathy"`
	Profile    profileInfo   `json:"profileInfo"`
	Content    storyContent  `json:"storyMainContent"`
	Meta       storyMeta     `json:"storyMetaInfo"`
	Empathized *empathized   `json:"resultOfEmpathize"`
	StoryID    int64         `json:"storyId"`
	WriterID   int64         `json:"writerId"`
	IsMine     bool          `json:"isMine"`
}

type empathyCounts struct {
	TotalCount     int `json:"totalCount"`
	HappinessCount int `json:"happinessCount"`
	SadnessCount   int `json:"sadnessCount"`
	SurprisedCount int `json:"surprisedCount"`
	AngryCount     int `json:"angryCount"`
}

type profileInfo struct {
	Nickname   string `json:"nickname"`
	ProfileImg string `json:"profileImg"`
}

type storyContent struct {
	BodyText      string  `json:"bodyText"`
	WriterEmotion string  `json:"writerEmotion"`
	Photos        []photo `json:"photo"`
}

type photo struct {
	PhotoURL string `json:"photoUrl"`
}

type storyMeta struct {
	IsAnonymous bool `json:"isAnonymous"`
	IsModified  bool `json:"isModified"`
	IsOpened    bool `json:"isOpened"`
}

type empathized struct {
	EmotionCode string `json:"emotionCode"`
}

type empathyRequest struct {
	EmotionCode string `json:"emotionCode"`
}

type blockRequest struct {
	BlockedID int64 `json:"blockedId"`
}

type reportRequest struct {
	ReportCode string `json:"reportCode"`
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
}

// parseTimestamp accepts RFC 3339 and the zone-less local forms the service emits,
// which are read as UTC
func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// toFeedItem converts a wire story into the cached representation
func (s story) toFeedItem() (feeds.FeedItem, error) {
	createdAt, err := parseTimestamp(s.CreatedAt)
	if err != nil {
		return feeds.FeedItem{}, fmt.Errorf("story %d createdAt: %w", s.StoryID, err)
	}
	updatedAt, err := parseTimestamp(s.UpdatedAt)
	if err != nil {
		return feeds.FeedItem{}, fmt.Errorf("story %d updatedAt: %w", s.StoryID, err)
	}
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	var writerMood feeds.Mood
	if s.Content.WriterEmotion != "" {
		m, err := feeds.ParseMood(s.Content.WriterEmotion)
		if err != nil {
			return feeds.FeedItem{}, fmt.Errorf("story %d writerEmotion: %w", s.StoryID, err)
		}
		writerMood = m
	}

	var selected *feeds.Mood
	if s.Empathized != nil && s.Empathized.EmotionCode != "" {
		m, err := feeds.ParseMood(s.Empathized.EmotionCode)
		if err != nil {
			return feeds.FeedItem{}, fmt.Errorf("story %d resultOfEmpathize: %w", s.StoryID, err)
		}
		selected = &m
	}

	images := make([]string, 0, len(s.Content.Photos))
	for _, p := range s.Content.Photos {
		if p.PhotoURL != "" {
			images = append(images, p.PhotoURL)
		}
	}

	return feeds.FeedItem{
		ItemID:            s.StoryID,
		ItemUUID:          s.StoryUUID,
		OwnerID:           s.WriterID,
		OwnerNickname:     s.Profile.Nickname,
		OwnerProfileImage: s.Profile.ProfileImg,
		CreatedAt:         createdAt,
		UpdatedAt:         updatedAt,
		BodyText:          s.Content.BodyText,
		Images:            images,
		WriterMood:        writerMood,
		Reactions: feeds.NewReactions(map[feeds.Mood]int{
			feeds.MoodHappy:     s.Empathy.HappinessCount,
			feeds.MoodSad:       s.Empathy.SadnessCount,
			feeds.MoodAngry:     s.Empathy.AngryCount,
			feeds.MoodSurprised: s.Empathy.SurprisedCount,
		}, selected),
		IsAnonymous:     s.Meta.IsAnonymous,
		IsModified:      s.Meta.IsModified,
		IsOpened:        s.Meta.IsOpened,
		IsOwnedByViewer: s.IsMine,
	}, nil
}
