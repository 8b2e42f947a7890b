package schema_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tdrs/internal/schema"
	"tdrs/pkg/testutil"
)

func TestNormalize(t *testing.T) {
	t.Run("pads every width exactly", func(t *testing.T) {
		for width := 1; width <= 11; width++ {
			for _, in := range []string{"0", "7", strings.Repeat("9", width)} {
				out, err := schema.Normalize("f", in, width)
				require.NoError(t, err)
				assert.Len(t, out, width)
				assert.True(t, strings.HasSuffix(out, in))
			}
		}
	})

	t.Run("trims surrounding whitespace", func(t *testing.T) {
		out, err := schema.Normalize("county_fips_code", " 5 ", 3)
		require.NoError(t, err)
		assert.Equal(t, "005", out)
	})

	t.Run("drops redundant leading zeros", func(t *testing.T) {
		out, err := schema.Normalize("stratum", "007", 2)
		require.NoError(t, err)
		assert.Equal(t, "07", out)
	})

	for _, in := range []string{"", "abc", "-1", "1.5", "+3", "12a"} {
		t.Run("rejects "+in, func(t *testing.T) {
			_, err := schema.Normalize("disposition", in, 1)
			var fe *schema.FormatError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, "disposition", fe.Field)
			assert.Equal(t, 1, fe.Width)
		})
	}

	t.Run("rejects values wider than the field", func(t *testing.T) {
		_, err := schema.Normalize("zip_code", "123456", 5)
		var fe *schema.FormatError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "exceeds width", fe.Reason)
	})
}

func TestSchemaNormalizeFamily(t *testing.T) {
	out, err := schema.Family.Normalize(testutil.FamilyValues("1"))
	require.NoError(t, err)

	assert.Equal(t, "00000000001", out.Get("case_number"))
	assert.Equal(t, "0250", out.Get("snap_amount"))
	assert.Equal(t, "0", out.Get("receives_snap"), "default applied")
	assert.Equal(t, "0000", out.Get("item24a_amount"))
	for _, f := range schema.Family.Fields() {
		assert.Len(t, out.Get(f.Name), f.Width, f.Name)
	}
}

func TestSchemaNormalizeReportsAllFields(t *testing.T) {
	in := testutil.FamilyValues("1", "disposition", "x", "zip_code", "1234567")
	in["bogus"] = "1"

	_, err := schema.Family.Normalize(in)
	require.Error(t, err)

	fields := schema.FieldErrors(err)
	require.Len(t, fields, 3)
	assert.Equal(t, "bogus", fields[0].Field)
	assert.Equal(t, "unknown field", fields[0].Reason)
	assert.Equal(t, "zip_code", fields[1].Field)
	assert.Equal(t, "disposition", fields[2].Field)
	for _, fe := range fields {
		assert.Equal(t, "family", fe.Entity)
	}
}

func TestSchemaRequiredAndOptional(t *testing.T) {
	t.Run("required blank fails", func(t *testing.T) {
		in := testutil.FamilyValues("1")
		delete(in, "family_type")
		_, err := schema.Family.Normalize(in)
		var fe *schema.FormatError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "family_type", fe.Field)
		assert.Equal(t, "value required", fe.Reason)
	})

	t.Run("optional blank stays blank", func(t *testing.T) {
		in := testutil.AdultValues("123456789", "marital_status", "")
		out, err := schema.Adult.Normalize(in)
		require.NoError(t, err)
		assert.Equal(t, "", out.Get("marital_status"))
	})
}

func TestDateFields(t *testing.T) {
	cases := map[string]bool{
		"19850412": true,
		"99999999": true,
		"00000000": true,
		"20230229": false,
		"19851301": false,
		"1985041":  false, // pads to 01985041
	}
	for in, ok := range cases {
		t.Run(in, func(t *testing.T) {
			_, err := schema.Adult.Normalize(testutil.AdultValues("123456789", "date_of_birth", in))
			if ok {
				assert.NoError(t, err)
				return
			}
			var fe *schema.FormatError
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, "date_of_birth", fe.Field)
		})
	}
}

func TestAdultEducationRollup(t *testing.T) {
	in := testutil.AdultValues("123456789",
		"item59a_emped_hsd_participation", "5",
		"item60a_schlattnd_participation", "10",
		"item61a_chldcare_participation", "3",
		"item60b_schlattnd_excused_absences", "2",
	)
	out, err := schema.Adult.Normalize(in)
	require.NoError(t, err)

	assert.Equal(t, "18", out.Get("item59a_emped_hsd_participation"))
	assert.Equal(t, "02", out.Get("item59b_emped_hsd_excused_absences"))
	assert.Equal(t, "", out.Get("item59c_emped_hsd_holidays"), "nothing to roll up")

	t.Run("overflow is a format error", func(t *testing.T) {
		in := testutil.AdultValues("123456789",
			"item59a_emped_hsd_participation", "60",
			"item60a_schlattnd_participation", "40",
		)
		_, err := schema.Adult.Normalize(in)
		var fe *schema.FormatError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, "item59a_emped_hsd_participation", fe.Field)
	})
}

func TestSchemaLookup(t *testing.T) {
	s, ok := schema.For("child")
	require.True(t, ok)
	assert.Same(t, schema.Child, s)
	_, ok = schema.For("household")
	assert.False(t, ok)

	f, ok := schema.Adult.Field("relationship_to_hoh")
	require.True(t, ok)
	assert.Equal(t, 2, f.Width)
	assert.Equal(t, "case_number", schema.Family.Names()[0])
	assert.Equal(t, 108, schema.Family.RecordWidth())
	assert.Equal(t, 41, schema.Child.RecordWidth())
}
