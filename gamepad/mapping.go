package gamepad

// Built-in profile identifiers.
const (
	ProfileDefault            = "DEFAULT"
	ProfileXbox               = "XBOX_DEFAULT"
	ProfileLogitechWebKit     = "LOGITECH_WEBKIT"
	ProfileLogitechFirefox    = "LOGITECH_FIREFOX"
	ProfilePlaystationWebKit  = "PLAYSTATION_WEBKIT"
	ProfilePlaystationFirefox = "PLAYSTATION_FIREFOX"
	ProfileXboxSDL            = "XBOX_SDL"
	ProfilePlaystationSDL     = "PLAYSTATION_SDL"
	ProfileSwitchProSDL       = "SWITCH_PRO_SDL"
	ProfileEvdev              = "EVDEV"
)

// SDLHatBase is the raw button index at which SDL sources report hat 0 as
// four synthetic buttons (up, down, left, right). Devices with more than
// SDLHatBase buttons report no hat.
const SDLHatBase = 32

// ExpandHat appends hat 0 to buttons at SDLHatBase, padding with released
// buttons as needed. Button lists longer than SDLHatBase are returned as is,
// since the hat would overlap real buttons.
func ExpandHat(buttons []float64, up, down, left, right bool) []float64 {
	if len(buttons) > SDLHatBase {
		return buttons
	}
	out := make([]float64, SDLHatBase+4)
	copy(out, buttons)
	for i, on := range []bool{up, down, left, right} {
		if on {
			out[SDLHatBase+i] = 1
		}
	}
	return out
}

var standardAxes = Seq("LEFT_STICK_X", "LEFT_STICK_Y", "RIGHT_STICK_X", "RIGHT_STICK_Y")

// W3C "standard" gamepad layout, also what Chrome reports for XInput pads.
var standardButtons = Seq(
	"A", "B", "X", "Y",
	"LB", "RB", "LEFT_TRIGGER", "RIGHT_TRIGGER",
	"BACK", "START", "LEFT_STICK", "RIGHT_STICK",
	"DPAD_UP", "DPAD_DOWN", "DPAD_LEFT", "DPAD_RIGHT",
	"HOME",
)

var defaultProfile = MustProfile(ProfileDefault, standardButtons, standardAxes)

var xboxProfile = MustProfile(ProfileXbox, standardButtons, standardAxes)

// logitechWebKitProfile mirrors what WebKit reports for Logitech pads.
// Index 11 reports HOME and the stick clicks and DPAD_UP are shifted by one
// compared to the physical layout. The table keeps the observed order.
var logitechWebKitProfile = MustProfile(ProfileLogitechWebKit,
	Seq(
		"X", "A", "B", "Y",
		"LB", "RB", "LEFT_TRIGGER", "RIGHT_TRIGGER",
		"BACK", "START", "LEFT_STICK", "HOME",
		"RIGHT_STICK", "DPAD_UP", "DPAD_DOWN", "DPAD_LEFT",
		"DPAD_RIGHT",
	),
	standardAxes,
)

// Firefox reports the triggers as axes on Logitech pads.
var logitechFirefoxProfile = MustProfile(ProfileLogitechFirefox,
	Seq(
		"A", "B", "X", "Y",
		"LB", "RB",
		"BACK", "START", "LEFT_STICK", "RIGHT_STICK", "HOME",
		"DPAD_UP", "DPAD_DOWN", "DPAD_LEFT", "DPAD_RIGHT",
	),
	Seq("LEFT_STICK_X", "LEFT_STICK_Y", "LEFT_TRIGGER", "RIGHT_STICK_X", "RIGHT_STICK_Y", "RIGHT_TRIGGER"),
)

var playstationWebKitProfile = MustProfile(ProfilePlaystationWebKit,
	Seq(
		"CROSS", "CIRCLE", "SQUARE", "TRIANGLE",
		"LB1", "RB1", "LB2", "RB2",
		"SELECT", "START", "LEFT_STICK", "RIGHT_STICK",
		"DPAD_UP", "DPAD_DOWN", "DPAD_LEFT", "DPAD_RIGHT",
		"HOME",
	),
	standardAxes,
)

// Indices 8 and 9 (L2/R2) and 16 (PS) are not reported as buttons.
var playstationFirefoxProfile = MustProfile(ProfilePlaystationFirefox,
	Seq(
		"SELECT", "LEFT_STICK", "RIGHT_STICK", "START",
		"DPAD_UP", "DPAD_RIGHT", "DPAD_DOWN", "DPAD_LEFT",
		"", "",
		"LB1", "RB1",
		"TRIANGLE", "CIRCLE", "CROSS", "SQUARE",
	),
	standardAxes,
)

var sdlHat = []Entry{
	{Index: SDLHatBase, Name: "DPAD_UP"},
	{Index: SDLHatBase + 1, Name: "DPAD_DOWN"},
	{Index: SDLHatBase + 2, Name: "DPAD_LEFT"},
	{Index: SDLHatBase + 3, Name: "DPAD_RIGHT"},
}

var sdlAxes = Seq("LEFT_STICK_X", "LEFT_STICK_Y", "RIGHT_STICK_X", "RIGHT_STICK_Y", "LEFT_TRIGGER", "RIGHT_TRIGGER")

var xboxSDLProfile = MustProfile(ProfileXboxSDL,
	append(Seq(
		"A", "B", "X", "Y",
		"LB", "RB", "BACK", "START",
		"LEFT_STICK", "RIGHT_STICK", "HOME",
	), sdlHat...),
	sdlAxes,
)

var playstationSDLProfile = MustProfile(ProfilePlaystationSDL,
	append(Seq(
		"CROSS",    // ×
		"CIRCLE",   // ○
		"SQUARE",   // □
		"TRIANGLE", // △
		"SELECT",   // Share / Create
		"HOME",     // PS button
		"START",    // Options
		"LEFT_STICK",
		"RIGHT_STICK",
		"LB1",
		"RB1",
	), sdlHat...),
	sdlAxes,
)

// Switch Pro triggers are digital, SDL reports no trigger axes.
var switchProSDLProfile = MustProfile(ProfileSwitchProSDL,
	append(Seq(
		"A", "B", "X", "Y",
		"LB", "RB", "BACK", "START",
		"LEFT_STICK", "RIGHT_STICK", "HOME",
	), sdlHat...),
	standardAxes,
)

// evdevProfile follows the kernel key codes: raw index is code - BTN_SOUTH,
// with the dpad buttons after BTN_THUMBR and the hat as the last two axes.
var evdevProfile = MustProfile(ProfileEvdev,
	Seq(
		"A", "B", "", "X", "Y", "",
		"LB", "RB", "LEFT_TRIGGER", "RIGHT_TRIGGER",
		"BACK", "START", "HOME", "LEFT_STICK", "RIGHT_STICK",
		"DPAD_UP", "DPAD_DOWN", "DPAD_LEFT", "DPAD_RIGHT",
	),
	Seq("LEFT_STICK_X", "LEFT_STICK_Y", "LEFT_TRIGGER", "RIGHT_STICK_X", "RIGHT_STICK_Y", "RIGHT_TRIGGER", "DPAD_X", "DPAD_Y"),
)

func builtinProfiles() []*Profile {
	return []*Profile{
		defaultProfile,
		xboxProfile,
		logitechWebKitProfile,
		logitechFirefoxProfile,
		playstationWebKitProfile,
		playstationFirefoxProfile,
		xboxSDLProfile,
		playstationSDLProfile,
		switchProSDLProfile,
		evdevProfile,
	}
}
