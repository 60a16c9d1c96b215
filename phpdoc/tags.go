// Copyright © 2024 The ELPS authors

package phpdoc

import "strings"

// standardTags are the tags of the PHPDoc standard and those widely used by
// PHPUnit, Psalm and PHPStan.
var standardTags = map[string]bool{
	"abstract": true, "access": true, "api": true, "author": true,
	"category": true, "copyright": true, "deprecated": true, "example": true,
	"extends": true, "filesource": true, "final": true, "global": true,
	"ignore": true, "implements": true, "inheritdoc": true, "internal": true,
	"license": true, "link": true, "method": true, "mixin": true,
	"param": true, "property": true, "property-read": true,
	"property-write": true, "return": true, "see": true, "since": true,
	"source": true, "static": true, "throws": true, "todo": true, "uses": true,
	"used-by": true, "var": true, "version": true, "template": true,
	"template-covariant": true, "template-contravariant": true,
	"template-extends": true, "template-implements": true, "readonly": true,
	"override": true, "pure": true, "immutable": true, "noinspection": true,
	"suppresswarnings": true,

	// PHPUnit
	"after": true, "afterclass": true, "backupglobals": true,
	"backupstaticattributes": true, "before": true, "beforeclass": true,
	"codecoverageignore": true, "codecoverageignorestart": true,
	"codecoverageignoreend": true, "covers": true, "coversdefaultclass": true,
	"coversnothing": true, "dataprovider": true, "depends": true,
	"doesnotperformassertions": true, "group": true, "large": true,
	"medium": true, "preserveglobalstate": true, "requires": true,
	"runinseparateprocess": true, "small": true, "test": true,
	"testdox": true, "testwith": true, "ticket": true, "expectedexception": true,
}

// toolPrefixes mark tool specific tags which are accepted wholesale.
var toolPrefixes = []string{"psalm-", "phpstan-", "phan-"}

// DefaultKnownTags are accepted in addition to the standard tags unless
// configured otherwise.
var DefaultKnownTags = []string{
	"OpenAPI", "NoOpenAPI", "package", "testsuite", "subpackage",
	"runTestsInSeparateProcesses", "log",
}

// IsKnownTag reports whether tag is standard or listed in extra.  Tags are
// compared case-insensitively.
func IsKnownTag(tag string, extra []string) bool {
	lower := strings.ToLower(tag)
	if standardTags[lower] {
		return true
	}
	for _, p := range toolPrefixes {
		if strings.HasPrefix(lower, p) {
			return true
		}
	}
	for _, k := range extra {
		if strings.EqualFold(k, tag) {
			return true
		}
	}
	return false
}
