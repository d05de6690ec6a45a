package form

// PayloadType selects the payload tab of the form
type PayloadType int

const (
	PayloadFile PayloadType = iota
	PayloadKeyFile
	PayloadCADir
)

// TabVisibility tells which payload containers are shown
type TabVisibility struct {
	File    bool `json:"file_container"`
	KeyFile bool `json:"keyfile_container"`
	CADir   bool `json:"ca_dir_container"`
}

// Tabs returns the containers shown for a payload type. Unknown types fall back to the file tab.
func Tabs(ptype PayloadType) TabVisibility {
	switch ptype {
	case PayloadKeyFile:
		return TabVisibility{File: true, KeyFile: true}
	case PayloadCADir:
		return TabVisibility{CADir: true}
	default:
		return TabVisibility{File: true}
	}
}
