package model

import "time"

// AppConfig is the single mobile-client configuration document in
// the `app_config` table: store package names, current versions and
// build numbers per platform.
type AppConfig struct {
	ID                 string    // app_config.id
	AppName            string    // app_config.app_name
	IOSPackageName     string    // app_config.ios_package_name
	IOSVersion         string    // app_config.ios_version
	IOSBuildNumber     string    // app_config.ios_build_number
	AndroidPackageName string    // app_config.android_package_name
	AndroidVersion     string    // app_config.android_version
	AndroidBuildNumber string    // app_config.android_build_number
	CreatedAt          time.Time // app_config.created_at
	UpdatedAt          time.Time // app_config.updated_at
}
