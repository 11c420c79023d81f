package model

// All 参与 AutoMigrate 的模型
func All() []interface{} {
	return []interface{}{
		&User{},
		&Post{},
		&Like{},
		&Save{},
		&Comment{},
		&Notification{},
		&Outbox{},
		&Upload{},
	}
}
