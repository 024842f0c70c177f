// Package twofa содержит источники 2FA-кодов для шага fetch_2fa_action.
//
// Сейчас реализован только TOTP: код вычисляется локально по секрету
// из действия, ожидание и отметка таймера 2FA ему не нужны.
// Источники email и api_call не регистрируются, интерпретатор
// отвечает на них ErrNotSupported.
package twofa
