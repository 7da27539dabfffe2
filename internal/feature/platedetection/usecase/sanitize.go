package usecase

import "strings"

// PlateWhitelist はOCRエンジンに許可する文字集合です。
const PlateWhitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// SanitizePlateText はASCII英数字以外をすべて取り除きます。
// 何も残らなかった場合は ok=false を返します。
func SanitizePlateText(raw string) (text string, ok bool) {
	text = strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		}
		return -1
	}, raw)
	return text, text != ""
}

// RestrictToWhitelist は英小文字を大文字にしたうえで PlateWhitelist 以外の文字を取り除きます。
// 文字集合を指定できないOCRエンジン（Vision, Gemini, Rekognition）の出力をTesseractと揃えます。
func RestrictToWhitelist(raw string) string {
	return strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' {
			r -= 'a' - 'A'
		}
		if strings.ContainsRune(PlateWhitelist, r) {
			return r
		}
		return -1
	}, raw)
}
