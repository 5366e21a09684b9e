package token

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// secretKey 存储服务器签名会话JWT使用的密钥。
// 配置中未提供时在启动时随机生成，此时重启会使所有会话失效。
var secretKey []byte

var (
	issuer   string
	validity time.Duration
)

// ErrInvalidToken 表示令牌无法通过校验（签名、签发者或有效期）。
var ErrInvalidToken = errors.New("invalid session token")

// InitProcessor 初始化会话令牌的签发与校验参数。
// 应在应用启动时且仅调用一次。
func InitProcessor(secret, iss string, valid time.Duration) {
	if secret == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			panic("无法生成安全的密钥: " + err.Error())
		}
		secretKey = key
		fmt.Println("未配置令牌密钥，已生成随机HMAC密钥（重启后所有会话失效）。")
	} else {
		secretKey = []byte(secret)
	}
	issuer = iss
	validity = valid
}

// IssueSessionToken 为指定用户签发一个会话JWT。
func IssueSessionToken(userID uint) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   strconv.FormatUint(uint64(userID), 10),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(validity)),
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString(secretKey)
	if err != nil {
		return "", fmt.Errorf("无法签发会话令牌: %w", err)
	}
	return signed, nil
}

// ParseSessionToken 校验一个会话JWT并返回其中的用户ID。
func ParseSessionToken(tokenString string) (uint, error) {
	parsed, err := jwt.ParseWithClaims(
		tokenString,
		&jwt.RegisteredClaims{},
		func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return secretKey, nil
		},
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !parsed.Valid {
		return 0, ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return 0, ErrInvalidToken
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil {
		return 0, ErrInvalidToken
	}
	return uint(id), nil
}

// GenerateStateNonce 生成OAuth登录流程使用的随机state值。
func GenerateStateNonce() (string, error) {
	buf := make([]byte, 24)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("无法生成state随机数: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
