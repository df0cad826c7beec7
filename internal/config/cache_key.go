package config

// StorageKeyStruct names the keys used by key-value storage backends.
// The values keep the names the browser build used for localStorage so
// exported snapshots stay recognisable.
type StorageKeyStruct struct {
	Students  string
	Questions string
	Config    string
	Subjects  string
}

var StorageKey = &StorageKeyStruct{
	Students:  "graha_cbt_students",
	Questions: "graha_cbt_questions",
	Config:    "graha_cbt_config",
	Subjects:  "graha_cbt_subjects",
}
