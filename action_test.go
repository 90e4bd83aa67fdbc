package migrator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func Test_createConfigurators(t *testing.T) {
	tt := []struct {
		name                  string
		expectedConfigurators int
		step                  bool
		force                 bool
	}{
		{
			name:                  "zero values",
			expectedConfigurators: 0,
		},
		{
			name:                  "both params",
			expectedConfigurators: 2,
			step:                  true,
			force:                 true,
		},
		{
			name:                  "only step",
			expectedConfigurators: 1,
			step:                  true,
		},
		{
			name:                  "only force",
			expectedConfigurators: 1,
			force:                 true,
		},
	}

	for _, tc := range tt {
		t.Run(tc.name, func(t *testing.T) {
			configurators := CreateConfigurators(tc.step, tc.force)
			assert.Len(t, configurators, tc.expectedConfigurators)

			a := newAction(configurators)

			assert.Equal(t, tc.step, a.step)
			assert.Equal(t, tc.force, a.force)
		})
	}
}

func Test_action(t *testing.T) {
	t.Parallel()

	t.Run("step and force", func(t *testing.T) {
		a := Action{}

		WithStep()(&a)
		WithForce()(&a)

		assert.True(t, a.step)
		assert.True(t, a.force)
	})
}
