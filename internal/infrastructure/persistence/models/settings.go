package models

// SettingModel is a key/value row of app_settings
type SettingModel struct {
	Key   string `gorm:"column:key;primaryKey"`
	Value string `gorm:"column:value;not null"`
}

// TableName returns the table name for GORM
func (SettingModel) TableName() string {
	return "app_settings"
}
