package policy

import "strings"

// breachedCorpus is a static membership set of passwords known from public
// credential dumps. Lookup is case-insensitive: attackers try case variants
// of dumped entries first.
var breachedCorpus = map[string]struct{}{
	"123456":           {},
	"123456789":        {},
	"12345678":         {},
	"password":         {},
	"password1":        {},
	"password123":      {},
	"passw0rd":         {},
	"qwerty":           {},
	"qwerty123":        {},
	"qwertyuiop":       {},
	"abc123":           {},
	"111111":           {},
	"123123":           {},
	"1234567890":       {},
	"iloveyou":         {},
	"admin":            {},
	"admin123":         {},
	"welcome":          {},
	"welcome1":         {},
	"letmein":          {},
	"monkey":           {},
	"dragon":           {},
	"sunshine":         {},
	"princess":         {},
	"football":         {},
	"baseball":         {},
	"master":           {},
	"superman":         {},
	"senha123":         {},
	"brasil123":        {},
	"mudar123":         {},
	"trustno1":         {},
	"whatever":         {},
	"freedom":          {},
	"shadow":           {},
	"passwort":         {},
	"p@ssw0rd":         {},
	"p@ssword1":        {},
	"password1234":     {},
	"password12345":    {},
	"passw0rd1234!":    {},
	"administrator":    {},
	"1q2w3e4r":         {},
	"1qaz2wsx":         {},
	"zaq12wsx":         {},
	"!qaz2wsx3edc":     {},
	"correcthorse":     {},
	"letmein12345!":    {},
	"summer2024!":      {},
	"winter2024!":      {},
	"changeme":         {},
	"changeme123!":     {},
	"default":          {},
	"secret123":        {},
	"god":              {},
	"login":            {},
	"starwars":         {},
	"pokemon":          {},
	"naruto":           {},
	"flamengo":         {},
	"corinthians":      {},
	"palmeiras":        {},
	"vestibular2024":   {},
	"enem2024":         {},
	"concurso123":      {},
	"estudante123":     {},
}

func isBreached(password string) bool {
	_, ok := breachedCorpus[strings.ToLower(password)]
	return ok
}
