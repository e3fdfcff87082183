package listopad

// prelude is evaluated once per interpreter, after the builtins are
// installed. Everything here is expressed with primitives only.
const prelude = `
(begin
  (define inc (lambda (x) (+ x 1)))
  (define dec (lambda (x) (- x 1)))
  (define abs (lambda (x) (if (< x 0) (* x -1) x)))

  (define < (lambda (x y) (> y x)))
  (define >= (lambda (x y) (not (> y x))))
  (define <= (lambda (x y) (not (> x y))))

  (define max (lambda (x y) (if (> x y) x y)))
  (define min (lambda (x y) (if (< x y) x y)))

  ; when/unless take y already evaluated and evaluate it once more, so a
  ; quoted form passed as y runs as code.
  (define when (lambda (x y) (if x (begin (eval y) #t) #f)))
  (define unless (lambda (x y) (if x #f (begin (eval y) #t)))))
`
