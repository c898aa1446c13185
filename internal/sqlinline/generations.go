package sqlinline

const QEnsureGenerationDaily = `--sql 7d0c2f4e-6b1a-4f3e-9a51-2c8e4b7d9f10
create table if not exists generation_daily (
  day              date        primary key,
  requests         int         not null default 0,
  success          int         not null default 0,
  bad_request      int         not null default 0,
  upstream_timeout int         not null default 0,
  upstream_loading int         not null default 0,
  upstream_failure int         not null default 0,
  internal_failure int         not null default 0,
  created_at       timestamptz not null default now(),
  updated_at       timestamptz not null default now()
);
`

const QIncrementGenerationDaily = `--sql d5c02a4e-f54c-4d62-a09b-db75e6fe3fe6
insert into generation_daily (
  day, requests, success, bad_request, upstream_timeout, upstream_loading, upstream_failure, internal_failure
) values (
  $1::date, $2, $3, $4, $5, $6, $7, $8
)
on conflict (day) do update set
  requests         = generation_daily.requests + excluded.requests,
  success          = generation_daily.success + excluded.success,
  bad_request      = generation_daily.bad_request + excluded.bad_request,
  upstream_timeout = generation_daily.upstream_timeout + excluded.upstream_timeout,
  upstream_loading = generation_daily.upstream_loading + excluded.upstream_loading,
  upstream_failure = generation_daily.upstream_failure + excluded.upstream_failure,
  internal_failure = generation_daily.internal_failure + excluded.internal_failure,
  updated_at       = now();
`

const QLatestGenerationDaily = `--sql 1f02d0ce-0ae2-465f-9209-c7e97f83bb5f
select
  day,
  requests,
  success,
  bad_request,
  upstream_timeout,
  upstream_loading,
  upstream_failure,
  internal_failure,
  created_at,
  updated_at
from generation_daily
order by day desc
limit 1;
`
