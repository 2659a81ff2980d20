package indicator

import (
	"testing"

	"github.com/quantfork/cryptbot/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type MovingAverageTestSuite struct {
	suite.Suite
}

func TestMovingAverageSuite(t *testing.T) {
	suite.Run(t, new(MovingAverageTestSuite))
}

func (suite *MovingAverageTestSuite) TestInvalidWindow() {
	for _, window := range []int{0, -1, -100} {
		ma, err := NewMovingAverage(window)
		suite.Require().Error(err)
		suite.Nil(ma)
		suite.True(errors.HasCode(err, errors.ErrCodeInvalidWindow))
	}
}

func (suite *MovingAverageTestSuite) TestMeanUndefinedUntilWindowFull() {
	ma, err := NewMovingAverage(3)
	suite.Require().NoError(err)

	suite.True(ma.Mean().IsNone())
	suite.False(ma.Ready())

	suite.True(ma.Update(decimal.NewFromInt(10)).IsNone())
	suite.True(ma.Update(decimal.NewFromInt(20)).IsNone())

	mean := ma.Update(decimal.NewFromInt(30))
	suite.Require().True(mean.IsSome())
	suite.True(ma.Ready())
	suite.True(mean.Unwrap().Equal(decimal.NewFromInt(20)))
}

func (suite *MovingAverageTestSuite) TestEvictsOldestValue() {
	ma, err := NewMovingAverage(2)
	suite.Require().NoError(err)

	ma.Update(decimal.NewFromInt(1))
	ma.Update(decimal.NewFromInt(3))

	// Window now holds [3, 5]; 1 must be gone.
	mean := ma.Update(decimal.NewFromInt(5))
	suite.Require().True(mean.IsSome())
	suite.True(mean.Unwrap().Equal(decimal.NewFromInt(4)))

	// Window now holds [5, 7].
	mean = ma.Update(decimal.NewFromInt(7))
	suite.Require().True(mean.IsSome())
	suite.True(mean.Unwrap().Equal(decimal.NewFromInt(6)))
}

func (suite *MovingAverageTestSuite) TestWindowOfOneTracksPrice() {
	ma, err := NewMovingAverage(1)
	suite.Require().NoError(err)

	for _, price := range []int64{10, 42, 7} {
		mean := ma.Update(decimal.NewFromInt(price))
		suite.Require().True(mean.IsSome())
		suite.True(mean.Unwrap().Equal(decimal.NewFromInt(price)))
	}
}

func (suite *MovingAverageTestSuite) TestExactDecimalMean() {
	ma, err := NewMovingAverage(4)
	suite.Require().NoError(err)

	for _, price := range []string{"10.1", "10.2", "10.3", "10.4"} {
		d, perr := decimal.NewFromString(price)
		suite.Require().NoError(perr)
		ma.Update(d)
	}

	mean := ma.Mean()
	suite.Require().True(mean.IsSome())

	expected, perr := decimal.NewFromString("10.25")
	suite.Require().NoError(perr)
	suite.True(mean.Unwrap().Equal(expected))
}
