// Package pwdutil 管理员密码哈希
package pwdutil

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Cost bcrypt 计算成本
const Cost = bcrypt.DefaultCost

// MinLength 最短密码长度
const MinLength = 6

// ErrTooShort 密码过短
var ErrTooShort = errors.New("password too short")

// Hash 生成密码哈希
func Hash(password string) (string, error) {
	if len(password) < MinLength {
		return "", ErrTooShort
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), Cost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Compare 比较密码和哈希
func Compare(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// NeedsRehash 哈希无效或成本与当前设置不一致时返回 true
func NeedsRehash(hash string) bool {
	cost, err := bcrypt.Cost([]byte(hash))
	if err != nil {
		return true
	}
	return cost != Cost
}
