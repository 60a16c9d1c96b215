// Copyright © 2024 The ELPS authors

package names

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseFQN(t *testing.T) {
	tests := []struct {
		in   string
		want string
		last Name
	}{
		{`\Foo\Bar`, `\Foo\Bar`, "Bar"},
		{`Foo\Bar`, `\Foo\Bar`, "Bar"},
		{`Foo`, `\Foo`, "Foo"},
		{`\`, `\`, ""},
		{``, `\`, ""},
		{` \A\\B `, `\A\B`, "B"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			fq := ParseFQN(tt.in)
			assert.Equal(t, tt.want, fq.String())
			assert.Equal(t, tt.last, fq.Last())
		})
	}
}

func TestFullyQualifiedName_Join(t *testing.T) {
	ns := ParseFQN(`App\Models`)
	fq := ns.Join("User")
	assert.Equal(t, `\App\Models\User`, fq.String())
	assert.Equal(t, ns, fq.Namespace())
	assert.Equal(t, []Name{"App", "Models", "User"}, fq.Path())
	assert.Equal(t, fq, FQN("App", "Models", "User"))
	assert.True(t, FullyQualifiedName{}.IsRoot())
	assert.True(t, ParseFQN(`\Foo`).Namespace().IsRoot())
}

func TestFullyQualifiedName_Key(t *testing.T) {
	a := ParseFQN(`\App\User`)
	b := ParseFQN(`app\USER`)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a.Key(), b.Key())
	assert.True(t, a.EqualFold(b))
	assert.True(t, Name("strlen").EqualFold("StrLen"))
}

func TestFullyQualifiedName_Append(t *testing.T) {
	ns := ParseFQN(`App`)
	assert.Equal(t, `\App\Sub\Thing`, ns.Append(ParseFQN(`Sub\Thing`)).String())
}

func TestResolver_Resolve(t *testing.T) {
	r := &Resolver{Namespace: ParseFQN(`App`)}
	r.Alias("Model", ParseFQN(`Lib\Db\Model`))
	r.Alias("Http", ParseFQN(`Vendor\Http`))

	tests := []struct {
		in   string
		want string
	}{
		{`User`, `\App\User`},
		{`\User`, `\User`},
		{`model`, `\Lib\Db\Model`},
		{`Http\Client`, `\Vendor\Http\Client`},
		{`Sub\Thing`, `\App\Sub\Thing`},
		{`namespace\Thing`, `\App\Thing`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, r.Resolve(tt.in).String(), tt.in)
	}

	var none *Resolver
	assert.Equal(t, `\Foo`, none.Resolve("Foo").String())
}
