package model

import "time"

// AnonymousUser is a device-scoped session record in the
// `anonymous_users` table. A device gets exactly one active record;
// repeated anonymous sign-ins reuse it. Once upgraded to a
// registered account the record is frozen apart from audit fields.
//
// Fields:
//  ID             – primary key (uuid string).
//  DeviceID       – unique among active anonymous records.
//  DeviceType     – "iOS", "Android", "Web" or "Unknown".
//  AppVersion     – client version reported at creation.
//  SyncData       – locally accumulated study data (JSON column).
//  IsUpgraded     – set once when converted to a registered user.
//  UpgradedUserID – the User this record became, when upgraded.
//  LastSyncAt     – last time the client pushed sync data.
//  LastActiveAt   – bumped on every anonymous authentication.
type AnonymousUser struct {
	ID             string    // anonymous_users.id
	DeviceID       string    // anonymous_users.device_id
	DeviceType     string    // anonymous_users.device_type
	AppVersion     string    // anonymous_users.app_version
	SyncData       SyncData  // anonymous_users.sync_data (JSON)
	IsUpgraded     bool      // anonymous_users.is_upgraded
	UpgradedUserID *string   // anonymous_users.upgraded_user_id (nullable)
	LastSyncAt     time.Time // anonymous_users.last_sync_at
	LastActiveAt   time.Time // anonymous_users.last_active_at
	IsActive       bool      // anonymous_users.is_active
	CreatedAt      time.Time // anonymous_users.created_at
}

// SyncData is the payload an anonymous client accumulates offline and
// pushes on each sync. Stored as one JSON document on the record.
type SyncData struct {
	FavoriteWords     []string          `json:"favoriteWords"`
	UserPreferences   map[string]string `json:"userPreferences"`
	StudySessions     []StudySession    `json:"studySessions"`
	TotalWordsLearned int               `json:"totalWordsLearned"`
	CurrentStreak     int               `json:"currentStreak"`
	LongestStreak     int               `json:"longestStreak"`
	TotalStudySeconds int               `json:"totalStudySeconds"`
}

// StudySession aggregates one day of study activity. Sessions for the
// same calendar day are merged on sync rather than duplicated.
type StudySession struct {
	Date           time.Time `json:"date"`
	WordsStudied   int       `json:"wordsStudied"`
	CorrectAnswers int       `json:"correctAnswers"`
	StudySeconds   int       `json:"studySeconds"`
}
