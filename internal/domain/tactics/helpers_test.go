package tactics

import (
	"testing"

	"github.com/okian/pitchside/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestDistribute(t *testing.T) {
	Convey("Given band counts", t, func() {
		Convey("Then players are split by largest remainder", func() {
			So(distribute([]int{8, 8, 4}, 10), ShouldResemble, []int{4, 4, 2})
			So(distribute([]int{3, 3, 2, 2}, 10), ShouldResemble, []int{3, 3, 2, 2})
		})

		Convey("And every band keeps at least one player", func() {
			got := distribute([]int{20, 1, 1}, 10)
			So(got[1], ShouldBeGreaterThanOrEqualTo, 1)
			So(got[2], ShouldBeGreaterThanOrEqualTo, 1)
			So(got[0]+got[1]+got[2], ShouldEqual, 10)
		})
	})
}

func TestPercentages(t *testing.T) {
	Convey("Given channel counts", t, func() {
		So(percentages([]int{0, 0, 0}), ShouldResemble, []int{0, 0, 0})
		So(percentages([]int{1, 1, 1}), ShouldResemble, []int{34, 33, 33})
		So(percentages([]int{2, 1, 0}), ShouldResemble, []int{67, 33, 0})
		for _, c := range [][]int{{7, 3, 1}, {1, 5, 9}, {13, 0, 4}} {
			got := percentages(c)
			So(got[0]+got[1]+got[2], ShouldEqual, 100)
		}
	})
}

func TestVariability(t *testing.T) {
	states := func(labels ...string) []model.FormationState {
		out := make([]model.FormationState, len(labels))
		for i, l := range labels {
			out[i] = model.FormationState{Formation: l}
		}
		return out
	}

	Convey("Given formation sequences", t, func() {
		So(variability(nil, 0), ShouldEqual, 0)
		So(variability(states("4-4-2"), 0), ShouldEqual, 0)
		So(variability(states("4-4-2", "4-4-2", "4-4-2"), 0), ShouldEqual, 0)
		So(variability(states("4-4-2", "4-3-3", "4-4-2"), 2), ShouldAlmostEqual, 0.4*0.5+0.6, 1e-9)

		Convey("Then it stays within bounds when every bucket changes", func() {
			v := variability(states("a", "b", "c", "d", "e"), 4)
			So(v, ShouldBeLessThanOrEqualTo, 1)
			So(v, ShouldBeGreaterThanOrEqualTo, 0)
		})
	})
}
