package tray

// GetIcon returns the embedded tray icon data: ICO on Windows, PNG elsewhere.
func GetIcon() []byte {
	return iconData
}
