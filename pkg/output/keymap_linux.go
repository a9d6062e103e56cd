//go:build linux

package output

import "github.com/micmonay/keybd_event"

// punctKeys maps unshifted punctuation to virtual key codes
var punctKeys = map[rune]int{
	'.':  keybd_event.VK_DOT,
	',':  keybd_event.VK_COMMA,
	'-':  keybd_event.VK_MINUS,
	'=':  keybd_event.VK_EQUAL,
	'/':  keybd_event.VK_SLASH,
	';':  keybd_event.VK_SEMICOLON,
	'\'': keybd_event.VK_APOSTROPHE,
	'[':  keybd_event.VK_LEFTBRACE,
	']':  keybd_event.VK_RIGHTBRACE,
	'\\': keybd_event.VK_BACKSLASH,
	'`':  keybd_event.VK_GRAVE,
}

// shiftedPunct maps shifted punctuation to the unshifted key to press
var shiftedPunct = map[rune]int{
	'_': keybd_event.VK_MINUS,
	'+': keybd_event.VK_EQUAL,
	'?': keybd_event.VK_SLASH,
	':': keybd_event.VK_SEMICOLON,
	'"': keybd_event.VK_APOSTROPHE,
	'<': keybd_event.VK_COMMA,
	'>': keybd_event.VK_DOT,
	'{': keybd_event.VK_LEFTBRACE,
	'}': keybd_event.VK_RIGHTBRACE,
	'|': keybd_event.VK_BACKSLASH,
	'~': keybd_event.VK_GRAVE,
}
