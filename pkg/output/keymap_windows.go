//go:build windows

package output

import "github.com/micmonay/keybd_event"

// punctKeys maps unshifted punctuation to virtual key codes
var punctKeys = map[rune]int{
	'.':  keybd_event.VK_OEM_PERIOD,
	',':  keybd_event.VK_OEM_COMMA,
	'-':  keybd_event.VK_OEM_MINUS,
	'=':  keybd_event.VK_OEM_PLUS,
	'/':  keybd_event.VK_OEM_2,
	';':  keybd_event.VK_OEM_1,
	'\'': keybd_event.VK_OEM_7,
	'[':  keybd_event.VK_OEM_4,
	']':  keybd_event.VK_OEM_6,
	'\\': keybd_event.VK_OEM_5,
	'`':  keybd_event.VK_OEM_3,
}

// shiftedPunct maps shifted punctuation to the unshifted key to press
var shiftedPunct = map[rune]int{
	'_': keybd_event.VK_OEM_MINUS,
	'+': keybd_event.VK_OEM_PLUS,
	'?': keybd_event.VK_OEM_2,
	':': keybd_event.VK_OEM_1,
	'"': keybd_event.VK_OEM_7,
	'<': keybd_event.VK_OEM_COMMA,
	'>': keybd_event.VK_OEM_PERIOD,
	'{': keybd_event.VK_OEM_4,
	'}': keybd_event.VK_OEM_6,
	'|': keybd_event.VK_OEM_5,
	'~': keybd_event.VK_OEM_3,
}
