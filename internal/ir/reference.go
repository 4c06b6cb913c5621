package ir

import "fmt"

// Conv2D is the direct reference convolution used to check compiled op
// lists: stride one, uniform zero padding, input [1, C, H, W], filter
// [O, C, K, K]. Channels are summed in ascending order, one per-channel
// partial at a time, which is the order lowered ops accumulate in.
func Conv2D(x, w *Tensor, pad int) (*Tensor, error) {
	if len(x.Shape) != 4 || len(w.Shape) != 4 {
		return nil, fmt.Errorf("conv2d: want 4-D input and filter, got %v and %v", x.Shape, w.Shape)
	}
	if x.Shape[0] != 1 {
		return nil, fmt.Errorf("conv2d: batch %d, want 1", x.Shape[0])
	}
	cin, h, wd := x.Shape[1], x.Shape[2], x.Shape[3]
	cout, wc, kh, kw := w.Shape[0], w.Shape[1], w.Shape[2], w.Shape[3]
	if wc != cin {
		return nil, fmt.Errorf("conv2d: input channels %d != filter channels %d", cin, wc)
	}
	ho, wo := h+2*pad-kh+1, wd+2*pad-kw+1
	out, err := NewTensor(x.Name+"_ref", []int{1, cout, ho, wo})
	if err != nil {
		return nil, err
	}

	partial := func(o, c, i, j int) float32 {
		var sum float32
		for a := 0; a < kh; a++ {
			r := i + a - pad
			if r < 0 || r >= h {
				continue
			}
			for b := 0; b < kw; b++ {
				col := j + b - pad
				if col < 0 || col >= wd {
					continue
				}
				sum += x.Data[(c*h+r)*wd+col] * w.Data[((o*cin+c)*kh+a)*kw+b]
			}
		}
		return sum
	}

	for o := 0; o < cout; o++ {
		for i := 0; i < ho; i++ {
			for j := 0; j < wo; j++ {
				acc := partial(o, 0, i, j)
				for c := 1; c < cin; c++ {
					acc += partial(o, c, i, j)
				}
				out.Data[(o*ho+i)*wo+j] = acc
			}
		}
	}
	return out, nil
}
