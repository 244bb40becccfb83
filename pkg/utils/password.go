package utils

import "golang.org/x/crypto/bcrypt"

// Bcrypt 实现密码哈希；Cost 为 0 时使用 bcrypt.DefaultCost
type Bcrypt struct {
	Cost int
}

func (b Bcrypt) Hash(pw string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(pw), cost)
	if err != nil {
		return "", err
	}
	return string(h), nil
}

// Compare 常量时间比较（bcrypt 内部保证）
func (b Bcrypt) Compare(pw, hashed string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(pw)) == nil
}
