package models

// All returns every persisted model in migration order
func All() []interface{} {
	return []interface{}{
		&UserAuth{},
		&Client{},
		&Product{},
		&Price{},
		&Visit{},
		&OrderLine{},
		&ChecklistQuestion{},
		&ChecklistAnswer{},
		&Photo{},
		&SyncHistory{},
	}
}
